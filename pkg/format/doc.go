// Package format turns the outcome of an evaluation into something a chat
// host can deliver: a text block, a structured embed, or both.
//
// Three strategies are provided:
//   - Simple renders an interpreter transcript as plain text.
//   - Embed renders a structured display only.
//   - IPython renders a numbered In/Out transcript together with an embed.
//
// Every strategy also renders the farewell shown when the user types one
// of the exit tokens.
package format
