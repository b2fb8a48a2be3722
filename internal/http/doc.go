// Package http exposes the parking ledger over a JSON API built on chi.
//
// Every route except GET /healthz requires an `Authorization: Bearer <token>` header; the
// verified principal becomes the caller of the registry operation. The endpoints are:
//   - POST /roles/{admins,enforcers}/bootstrap: seeds a role set with the caller.
//   - POST /roles/{admins,enforcers}: adds `{"principal"}` to a role set.
//   - GET /roles/{admins,enforcers}/{principal}: membership check.
//   - POST /spaces, GET|PATCH /spaces/{id}, PUT /spaces/{id}/availability,
//     POST /spaces/{id}/deactivate, GET /spaces/{id}/rates: the space registry,
//     exchanging the `spaceDTO` payload defined in space_handler.go.
//   - GET /spaces/{id}/availability?time=T, GET /spaces/{id}/reservations,
//     GET /holders/{principal}/reservations, POST /reservations, GET /reservations/{id},
//     POST /reservations/{id}/{confirm,cancel,check-in,check-out}: the reservation ledger,
//     exchanging the `reservationDTO` payload defined in reservation_handler.go.
//   - POST /violations, GET /violations/{id}, POST /violations/{id}/review,
//     PUT /violations/{id}/violator, POST /violations/{id}/pay,
//     GET /spaces/{id}/violations, GET /violators/{principal}/violations: the violation
//     registry, exchanging the `violationDTO` payload defined in violation_handler.go.
//
// Errors are reported as {"error_code","message","errors"} with 400 for malformed input,
// 401 for missing or invalid tokens, 403 for authorization failures, 404 for unknown
// records and 409 for state conflicts.
package http
