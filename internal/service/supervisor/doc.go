// Package supervisor declares how the installed server runs persistently.
//
// BuildSpec produces a ServiceSpec value. Handing it to the host service
// manager (launchd on darwin, systemd on linux) is the job of a Registrar.
package supervisor
