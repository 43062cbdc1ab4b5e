// Package audit records security-relevant actions: sign-ins, sign-ups,
// sign-outs and role changes.
//
// A Logger fills user, request id and client address from the request
// context through extractors and hands each Event to a Storage:
//
//	log := audit.NewLogger(audit.NewSlogStorage(slogger),
//		audit.WithRequestIDExtractor(func(ctx context.Context) (string, bool) {
//			id := requestid.FromContext(ctx)
//			return id, id != ""
//		}),
//	)
//	_ = log.Log(ctx, audit.ActionRoleChange, audit.WithResource("user", id))
//
// MemoryStorage, SlogStorage and MongoStorage are provided.
package audit
