// Package textutil holds the string helpers shared by the encoder and the
// prompts: overlay text normalization and label casing.
package textutil
