package pipeline

// FilterNew drops records whose message id has already been stored for this
// mailbox owner, and collapses duplicates within the batch itself. Order is
// preserved; on an in-batch duplicate the first record wins.
func FilterNew(records []*TransactionRecord, existingIDs map[string]struct{}) []*TransactionRecord {
	seen := make(map[string]struct{}, len(existingIDs)+len(records))
	for id := range existingIDs {
		seen[id] = struct{}{}
	}

	fresh := make([]*TransactionRecord, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	return fresh
}
