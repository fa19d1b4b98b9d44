package store

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
)

func TestRedisStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStore(db, "test:")

	mock.ExpectGet("test:notifyTimeout").SetVal("7")
	mock.ExpectGet("test:siteRules").RedisNil()

	got, err := s.Get(context.Background(), KeyNotifyTimeout)
	if err != nil || string(got) != "7" {
		t.Errorf("Expected 7, got %q (%v)", got, err)
	}

	if _, err := s.Get(context.Background(), KeySiteRules); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStore(db, "")

	mock.ExpectSet(DefaultRedisPrefix+KeyCurrentSelection, []byte(`"word"`), 0).SetVal("OK")

	if err := s.Set(context.Background(), KeyCurrentSelection, []byte(`"word"`)); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_SettingsRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	settings := NewSettings(NewRedisStore(db, "test:"))

	mock.ExpectGet("test:translationSources").SetVal(`{"dictionaryPrimary":false,"sentenceTranslate":true,"thirdPartyDictionary":true}`)

	sources, err := settings.EnabledSources(context.Background())
	if err != nil {
		t.Fatalf("EnabledSources: %v", err)
	}
	if len(sources) != 3 {
		t.Errorf("Expected 3 sources, got %v", sources)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	mock.ExpectGet("test:notifyTimeout").SetErr(errors.New("connection refused"))

	settings := NewSettings(NewRedisStore(db, "test:"))
	d, err := settings.NotifyTimeout(context.Background())

	if err == nil {
		t.Error("Expected error to be surfaced")
	}
	if d != DefaultNotifyTimeout {
		t.Errorf("Expected default on error, got %v", d)
	}
}
