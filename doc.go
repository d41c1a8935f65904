// Package fhirschema provides schema compilation and multi-schema validation
// for the FHIR Schema (FS) representation: a compact, composable alternative
// to StructureDefinition-driven validation.
//
// The package wires together the core subsystems so callers do not have to
// assemble a resolver, converter, and validator by hand:
//
//	reg := resolver.New()
//	engine, err := fhirschema.New(reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	compiled, err := engine.Convert(sdJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg.Put(compiled)
//
//	var patient any
//	if err := json.Unmarshal(patientJSON, &patient); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := engine.Validate(ctx, patient, []string{compiled.URL})
//	if result.HasErrors() {
//	    for _, iss := range result.Errors() {
//	        fmt.Println(iss.String())
//	    }
//	}
//	result.Release()
//
// # Architecture
//
// Converting and validating are independent operations sharing one resolver
// (§4.4): the converter (convert) compiles StructureDefinitions into Schema
// documents (schema); the validator (validate) recursively walks a data
// instance against the set of schemas a resolver.Resolver can produce for it
// (collector). Slicing (validate), constraint evaluation (constraint), and
// structured issue reporting (issue) are cooperating subsystems invoked
// along that walk, not separate passes.
//
// # Functional Options
//
//	engine, err := fhirschema.New(reg,
//	    fhirschema.WithStrict(true),
//	    fhirschema.WithMaxDepth(32),
//	    fhirschema.WithWorkerCount(8),
//	    fhirschema.WithEvaluator(myFHIRPathAdapter),
//	)
//
// # Concurrency
//
// A Registry is the only shared mutable state (§5): its reads never block
// each other, and validation holds only borrowed references into it. Every
// top-level Convert/Validate call owns its own issue accumulator and path
// stack, so concurrent calls against the same Engine never interfere.
package fhirschema
