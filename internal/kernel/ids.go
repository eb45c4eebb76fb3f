package kernel

// Lpid is a logical-process identifier: an opaque integer globally unique
// across the simulation. LPs never share state; the kernel only ever hands
// an LP's own state to its own handlers.
type Lpid uint64

// NoLpid is the sentinel Lpid meaning "no LP" — used, for example, by the
// Workqueue scheduler to distinguish "an event carrying a returning
// machine id" from "an event with no returning machine". Lpid zero is a
// legitimate id in some deployments, so a dedicated sentinel is used
// instead of zero-as-absent.
const NoLpid Lpid = ^Lpid(0)

// UserId identifies a registered simulation user.
type UserId uint32
