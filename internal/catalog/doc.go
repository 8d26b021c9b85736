// Package catalog talks to the management catalog's admin service.
//
// It looks up deployment-type records by application display name, replaces
// registry-based detection clauses, and requests redistribution of content to
// distribution points. The Client interface keeps the pipeline testable; the
// HTTP implementation targets a ConfigMgr-style REST admin service.
package catalog
