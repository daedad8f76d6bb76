//go:build paymentstestmode

package payments

const testModeCompiled = true
