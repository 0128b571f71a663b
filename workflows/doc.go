// Package workflows holds the static knowledge about the conversation
// workflows the tuner can drive: the prompt templates each workflow
// requires and a reflected fallback schema for its form document, used when
// the evaluation backend cannot supply one.
package workflows
