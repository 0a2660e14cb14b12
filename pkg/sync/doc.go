/*
The sync package mirrors the Deployment Artifact Set from the operator's
machine to the project directory on the remote host.

The transfer itself is done by rsync, with delete-excluded semantics: files
that were removed locally, or that are now excluded, are removed from the
remote host as well. Paths that match the ignore file, or the hard-coded cache
directory, are never transferred.

Before the transfer, the package snapshots the artifacts with the same
exclusion rules. The snapshot fails fast on missing artifacts, reports what's
about to be sent, and lets `shipyard sync --watch` skip syncs when nothing
changed.
*/
package sync
