// Package workspace wires one process's view of the upload queue: the
// single-owner lock on the state directory, the durable store, the object
// store client and the controller. Open plays the role of login and Close
// the role of logout; nothing here is global.
package workspace
