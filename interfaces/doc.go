// Package interfaces holds the types, sentinel errors and collaborator
// interfaces shared between WindSend packages, keeping implementations
// free of import cycles.
//
// Collaborators implemented outside this module (OS auto-start, UI language)
// are described here so the config layer can call them without depending on
// a desktop toolkit.
package interfaces
