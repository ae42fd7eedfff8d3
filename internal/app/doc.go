// Package app contains the driver logic. It defines the App struct, its
// configuration and the generate and build runs, decoupled from any specific
// entrypoint like a CLI.
package app
