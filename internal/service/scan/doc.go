// Package scan glues the decode pipeline, the fiscal URL validator and the
// retry orchestrator into a scan session driven by a scan flow machine.
//
// A Session is what a UI talks to: it opens the camera, feeds frames or
// gallery images, and exposes the two control operations available while a
// submission is retrying. Run wires a session to the command line.
package scan
