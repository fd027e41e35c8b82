// Package veo integrates the Veo video backend so the overlay phase can
// render short highlight clips seeded by hero portraits.
//
// Video generation is a long-running remote operation; the client starts
// it, polls until completion, and downloads the result, all bounded by the
// caller's context.
package veo
