// Package main hosts the phono CLI entrypoint and command graph.
//
// The Cobra-based command tree drives scan passes, the directory watcher,
// index inspection, and configuration scaffolding. It centralizes
// configuration resolution, logging setup, and scan locking so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
