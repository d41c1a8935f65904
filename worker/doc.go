// Package worker provides a bounded worker pool for parallel batch
// validation.
//
// Example usage:
//
//	pool := worker.NewPool(validator, 4)
//	defer pool.Close()
//
//	go func() {
//	    for _, value := range values {
//	        pool.Submit(worker.Job{
//	            ID:         "job-1",
//	            Value:      value,
//	            SchemaURLs: []string{"https://example.org/Patient"},
//	        })
//	    }
//	}()
//
//	// Results() stays open until Close, so read one result per job.
//	for range values {
//	    result := <-pool.Results()
//	    if result.Error != nil {
//	        // handle error
//	    }
//	    // inspect result.Result
//	}
package worker
