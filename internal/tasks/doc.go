// Package tasks provides the task model and a file-backed task store.
//
// Tasks are owned by an external tracker; taskd only reads them. Type and
// status values are closed enumerations checked when the tasks file is
// decoded, so callers never see an unknown value.
package tasks
