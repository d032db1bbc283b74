package mongo

const (
	store           = "welltold"
	vaultEntryTable = "vaultentry"
	emailLockTable  = "emailLock"
)

var indexData = []IndexData{
	newIndexData(vaultEntryTable, []string{"userID", "ID"}, true),
	newIndexData(vaultEntryTable, []string{"userID", "createdAt"}, false),
	newIndexData(emailLockTable, []string{"key", "lockKey"}, true)}
