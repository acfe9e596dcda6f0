package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func instanceHandlers() repository.ModelHandlers[*channelInstanceRecord] {
	return repository.ModelHandlers[*channelInstanceRecord]{
		NewRecord: func() *channelInstanceRecord {
			return &channelInstanceRecord{}
		},
		GetID: func(record *channelInstanceRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *channelInstanceRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *channelInstanceRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func tokenHandlers() repository.ModelHandlers[*channelTokenRecord] {
	return repository.ModelHandlers[*channelTokenRecord]{
		NewRecord: func() *channelTokenRecord {
			return &channelTokenRecord{}
		},
		GetID: func(record *channelTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *channelTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *channelTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func activityHandlers() repository.ModelHandlers[*channelActivityRecord] {
	return repository.ModelHandlers[*channelActivityRecord]{
		NewRecord: func() *channelActivityRecord {
			return &channelActivityRecord{}
		},
		GetID: func(record *channelActivityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *channelActivityRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *channelActivityRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
