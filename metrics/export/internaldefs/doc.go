// Package internaldefs holds the metric names and bucket bounds shared by the
// exporter packages.
//
// Both the Prometheus and OTel exporters read these definitions so that a
// counter has one name everywhere. Changes here affect all exporters at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
