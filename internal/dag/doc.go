// Package dag turns a declared workflow into a validated execution graph
// and drives it to completion: dependency resolution over named sources and
// step outputs, cycle detection, deterministic topological ordering, and a
// concurrent worker-pool executor that consults the cache before every
// remote call and hosts deferred jobs on the job monitor.
package dag
