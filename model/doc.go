// Package model defines the provider-neutral language model abstraction used
// by agents.
//
// A Model turns a normalized Request (instructions, conversation contents,
// tool declarations) into a stream of Response chunks over a channel pair.
// Provider adapters live in subpackages (openai, anthropic, ollama); MockModel
// and ScriptedModel support tests and offline demos.
package model
