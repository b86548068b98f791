// Package server is the parent of the transport server packages. It declares
// nothing itself.
//
// # Subpackages
//
//   - server/http: HTTP server with configurable timeouts and OnStart/OnStop
//     lifecycle methods
//
// There is no gRPC server package and no module that combines several
// servers; callers build each server and call its OnStart and OnStop.
package server
