// Package state holds the live rotation state shared between the
// rotation scheduler, the apply engine, and the relay server. Every
// mutation is persisted so a restart can resume where it left off.
package state
