/*
Package session tracks live recalculation sessions and guards access to them.

Every operation on a session ID runs under a per-ID lock that is reference
counted and released when the last holder leaves. An optional distributed
locker extends the guarantee across replicas sharing a result store.
*/
package session
