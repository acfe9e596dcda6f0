// Package uazapi talks to the uazapi WhatsApp-gateway HTTP API and turns its
// loosely-typed responses into classified pairing results. The API is
// inconsistent: the same logical fields surface under different keys per call
// path, and the QR payload is sometimes embedded in a field documented as a
// plain status string. Normalization and extraction here are deliberately
// liberal in what they accept and strict about HTTP-level failures.
package uazapi
