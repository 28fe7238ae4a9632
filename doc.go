/*
Package soltoken is a client-side orchestrator for a token ledger hosted on
a Solana-style network. Transaction construction is delegated to a remote
builder service; this package derives the deterministic on-chain addresses
an operation needs, signs the returned unsigned transaction locally with a
key that never leaves the process, and submits the signed transaction back
to the network.

It implements only the parts of the wire protocol that the fetch/sign/
broadcast pipeline needs, rather than a general-purpose SDK.
*/

package soltoken
