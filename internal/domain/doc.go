// Package domain holds the core entities, users and tasks, together with
// their validation rules and state-transition logic. It has no dependency on
// transport or storage.
package domain
