// Package certificate contains the Certificate Issuance bounded context.
// This context owns recipient bookkeeping (who holds a certificate and with
// which grade), the data a certificate is rendered from, the naming of the
// published PDF artifact and the policy that decides how repeat issuances
// for a known recipient are treated.
package certificate
