package store

import (
	"grant-store/internal/domain/grant/model"
	"grant-store/internal/platform/storage"
)

// KeySet derives the primary record key and the four index set keys.
type KeySet interface {
	Grant(key string) string
	Subject(subjectID string) string
	Client(subjectID, clientID string) string
	Type(subjectID, clientID, grantType string) string
	Session(subjectID, clientID, sessionID string) string
}

// PrefixKeys lays keys out as prefix+key and prefix+subject[:client[:type|:session]].
type PrefixKeys struct {
	prefix string
}

func NewPrefixKeys(prefix string) PrefixKeys {
	return PrefixKeys{prefix: storage.NormalizePrefix(prefix)}
}

func (k PrefixKeys) Prefix() string { return k.prefix }

func (k PrefixKeys) Grant(key string) string { return k.prefix + key }

func (k PrefixKeys) Subject(subjectID string) string { return k.prefix + subjectID }

func (k PrefixKeys) Client(subjectID, clientID string) string {
	return k.prefix + subjectID + ":" + clientID
}

func (k PrefixKeys) Type(subjectID, clientID, grantType string) string {
	return k.prefix + subjectID + ":" + clientID + ":" + grantType
}

func (k PrefixKeys) Session(subjectID, clientID, sessionID string) string {
	return k.prefix + subjectID + ":" + clientID + ":" + sessionID
}

// IndexFor picks the most specific index set the filter can address.
//
//	client+session, no type -> session set
//	client, no type         -> client set
//	client+type             -> type set
//	otherwise               -> subject set
func IndexFor(keys KeySet, f model.Filter) string {
	hasClient, hasSession, hasType := f.ClientID != "", f.SessionID != "", f.Type != ""
	switch {
	case hasClient && hasSession && !hasType:
		return keys.Session(f.SubjectID, f.ClientID, f.SessionID)
	case hasClient && !hasType:
		return keys.Client(f.SubjectID, f.ClientID)
	case hasClient && hasType:
		return keys.Type(f.SubjectID, f.ClientID, f.Type)
	default:
		return keys.Subject(f.SubjectID)
	}
}

// families lists the four index sets addressed by one subject/client/type/session tuple.
func families(keys KeySet, subjectID, clientID, grantType, sessionID string) []string {
	return []string{
		keys.Subject(subjectID),
		keys.Client(subjectID, clientID),
		keys.Type(subjectID, clientID, grantType),
		keys.Session(subjectID, clientID, sessionID),
	}
}
