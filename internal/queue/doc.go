// Package queue persists pipeline items in SQLite.
//
// Each item tracks one source video through the stage lifecycle
// (pending → extracting → extracted → separating → separated →
// transcribing → transcribed → rendering → completed/failed) together
// with the on-disk artifact paths each stage produced. Interrupted
// processing statuses roll back to the preceding settled status so a
// rerun resumes at the failed stage instead of starting over.
package queue
