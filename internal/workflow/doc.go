// Package workflow sequences the pipeline stages over queue items and owns
// the workspace lock that keeps concurrent runs from racing on shared cache
// artifacts.
package workflow
