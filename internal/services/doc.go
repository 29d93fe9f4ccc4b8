// Package services provides cross-cutting helpers shared by pixelpress
// components: the error taxonomy used to classify failures and context
// annotation helpers that carry correlation identifiers through the
// workflow.
package services
