// Package gemini integrates the Gemini image backend so the hero phase can
// turn player selfies into stylized portraits.
//
// The client wraps the official genai SDK behind a narrow generation
// interface; tests swap in stubs to exercise response handling without
// calling the real backend.
package gemini
