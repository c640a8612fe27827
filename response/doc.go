// Package response shapes every reply into one JSON envelope:
//
//	{"status": true, "data": ..., "message": "", "pagination": {...}}
//
// Four result shapes are supported. Page carries pagination metadata,
// Collection and Object run records through a Transformer, and Array sends
// values such as counts as they are. Canned replies cover validation
// failures, empty requests, missing records and deletes, plus the
// boundary errors the controller maps (403, 409, 400, 500, 429).
package response
