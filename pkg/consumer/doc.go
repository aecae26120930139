/*
Package consumer provides the built-in fragment events consumers.

  - "log" writes one structured log record per event, and optionally one per trace entry.
  - "metrics" records Prometheus counters and histograms for events and node evaluations.
*/
package consumer
