// Package protocol implements the ihop command protocol spoken between the
// harness and each implementation under test.
//
// Each message is a JSON object. Requests carry a "cmd" field naming the
// command:
//
//	{"cmd": "start", "version": 1}
//	{"cmd": "dialect", "dialect": "https://json-schema.org/draft/2020-12/schema"}
//	{"cmd": "run", "seq": 1, "case": {...}}
//	{"cmd": "stop"}
//
// Every command is bound by name to a schema tag
//
//	tag:bowtie.report,2023:ihop:command:<name>
//
// Requests must satisfy {"$ref": tag}; responses must satisfy
// {"$ref": tag + "#response"}. Both directions go through a Validator
// supplied to NewCodec.
//
// Adding a command means declaring its type, its response type and a
// Definition built with Define. ToRequest and FromResponse need no change.
package protocol
