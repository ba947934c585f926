// Package providers contains the request/response adapters for each
// speech-synthesis vendor. Adapters are pure translators: they build an
// HTTP request from a SynthesisRequest and pull audio bytes back out of
// the response. They never perform I/O or retry.
// Each adapter implements the Adapter interface from the ttypes package.
package providers
