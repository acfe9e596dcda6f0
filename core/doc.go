// Package core implements tenant-scoped messaging-channel provisioning:
// credential resolution, instance reconciliation, the pairing pipeline that
// drives a provider connect call, and the stores and contracts the pipeline
// depends on.
package core
