// Package render turns assistant markdown into styled terminal text.
package render
