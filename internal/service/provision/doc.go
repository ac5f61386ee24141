// Package provision is the single install entry point. It consumes a
// release.Source: Precompiled goes through fetch, verify and extract, FromSource
// goes through the build collaborator. Both end in the installer, the runtime
// directories and the install receipt.
package provision
