// Package teams tracks teams, membership, and the team hierarchy.
//
// Sub-teams persist their parent link, so hierarchy queries traverse
// real descendants rather than an unrelated superset. The registry is
// in-memory with serialized writes; reads return copies.
package teams
