package auditlog_test

import (
	"context"
	"maps"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/store/memory"
)

type User struct {
	ID       int
	Name     string `audit:"Name,title"`
	Email    string `audit:"E-mail"`
	Password string `audit:"-"`
	Active   bool   `audit:"Active"`
	Region   string `audit:"Region,always"`
	Pets     []*Pet `audit:"Pets"`
}

func (User) AuditEntityDisplay() (string, string) { return "User", "Users" }

type Pet struct {
	ID     int
	Name   string `audit:"Name,title"`
	UserID *int
}

func (Pet) AuditEntityDisplay() (string, string) { return "Pet", "Pets" }

type Member struct {
	ID    int
	Roles []*Role `audit:"Rollen"`
}

func (Member) AuditEntityDisplay() (string, string) { return "Benutzer", "Benutzer" }

type Role struct {
	ID      int
	Name    string
	Members []*Member
}

func (Role) AuditEntityDisplay() (string, string) { return "Rolle", "Rollen" }
func (Role) AuditTitleTemplate() string { return "{Name}" }

type Left struct {
	L1     int
	L2     int
	Rights []*Right `audit:"Rechte"`
}

func (Left) AuditEntityDisplay() (string, string) { return "Links", "Links" }

type Right struct {
	R1   int
	R2   int
	Name string
}

func (Right) AuditEntityDisplay() (string, string) { return "Rechts", "Rechte" }
func (Right) AuditTitleTemplate() string { return "{Name}" }

type Status int

const (
	Off Status = iota
	On
)

func (s Status) String() string {
	if s == On {
		return "On"
	}
	return "Off"
}

type Measurement struct {
	ID     int
	Date   time.Time          `audit:"Datum"`
	Active bool               `audit:"Aktiv"`
	Mode   Status             `audit:"Status"`
	Day    auditlog.Date      `audit:"D"`
	At     auditlog.TimeOfDay `audit:"T"`
	Note   *string            `audit:"Notiz"`
}

var (
	userType = &auditlog.EntityType{Name: "User", Key: []string{"ID"}}
	petType  = &auditlog.EntityType{
		Name: "Pet",
		Key:  []string{"ID"},
		ForeignKeys: []auditlog.ForeignKey{{
			Properties:   []string{"UserID"},
			Principal:    "User",
			PrincipalKey: []string{"ID"},
			Inverse:      &auditlog.Navigation{Name: "Pets", Target: "Pet", Collection: true},
		}},
	}
	memberType = &auditlog.EntityType{
		Name:            "Member",
		Key:             []string{"ID"},
		SkipNavigations: []auditlog.Navigation{{Name: "Roles", Target: "Role", Collection: true}},
	}
	roleType = &auditlog.EntityType{
		Name:            "Role",
		Key:             []string{"ID"},
		SkipNavigations: []auditlog.Navigation{{Name: "Members", Target: "Member", Collection: true}},
	}
	memberRoleType = &auditlog.EntityType{
		Name: "MemberRole",
		Key:  []string{"MemberID", "RoleID"},
		ForeignKeys: []auditlog.ForeignKey{
			{Properties: []string{"MemberID"}, Principal: "Member", PrincipalKey: []string{"ID"}},
			{Properties: []string{"RoleID"}, Principal: "Role", PrincipalKey: []string{"ID"}},
		},
	}
	leftType = &auditlog.EntityType{
		Name:            "Left",
		Key:             []string{"L1", "L2"},
		SkipNavigations: []auditlog.Navigation{{Name: "Rights", Target: "Right", Collection: true}},
	}
	rightType = &auditlog.EntityType{
		Name:            "Right",
		Key:             []string{"R1", "R2"},
		SkipNavigations: []auditlog.Navigation{{Name: "Lefts", Target: "Left", Collection: true}},
	}
	leftRightType = &auditlog.EntityType{
		Name: "LeftRight",
		Key:  []string{"LeftL1", "LeftL2", "RightR1", "RightR2"},
		ForeignKeys: []auditlog.ForeignKey{
			{Properties: []string{"LeftL1", "LeftL2"}, Principal: "Left", PrincipalKey: []string{"L1", "L2"}},
			{Properties: []string{"RightR1", "RightR2"}, Principal: "Right", PrincipalKey: []string{"R1", "R2"}},
		},
	}
	measurementType = &auditlog.EntityType{Name: "Measurement", Key: []string{"ID"}}
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// track builds a record whose properties mirror the entity's scalar members.
func track(typ *auditlog.EntityType, entity any, state auditlog.State) *auditlog.Record {
	rec := &auditlog.Record{Type: typ, Entity: entity, State: state}
	if m, ok := entity.(map[string]any); ok {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			rec.Properties = append(rec.Properties, auditlog.Property{Name: k, Original: m[k], Current: m[k]})
		}
		return rec
	}
	v := reflect.Indirect(reflect.ValueOf(entity))
	for i := range v.NumField() {
		f := v.Type().Field(i)
		if f.Type.Kind() == reflect.Slice {
			continue
		}
		val := v.Field(i).Interface()
		rec.Properties = append(rec.Properties, auditlog.Property{Name: f.Name, Original: val, Current: val})
	}
	return rec
}

// modify marks a property as changed from old and the record as Modified.
func modify(rec *auditlog.Record, name string, old any) *auditlog.Record {
	for i := range rec.Properties {
		if rec.Properties[i].Name == name {
			rec.Properties[i].Original = old
			rec.Properties[i].Modified = true
		}
	}
	rec.State = auditlog.Modified
	return rec
}

func snapshot(recs ...*auditlog.Record) auditlog.Snapshot {
	return auditlog.Snapshot{Records: recs}
}

func intPtr(i int) *int { return &i }

type messageRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *messageRecorder) WriteMessages(_ context.Context, messages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, messages...)
}

func (r *messageRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

type harness struct {
	h        *auditlog.Handler
	messages *messageRecorder
	store    *memory.Store
	hook     *test.Hook
}

// newHarness returns a handler wired to a message recorder, a memory store and a
// null logger. configure may adjust the config before the handler is built.
func newHarness(t *testing.T, configure func(*auditlog.Config)) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	hs := &harness{messages: &messageRecorder{}, store: memory.NewStore(), hook: hook}

	cfg := auditlog.DefaultConfig()
	cfg.Messages = hs.messages
	cfg.Events = hs.store
	cfg.Logger = logger
	cfg.Now = func() time.Time { return fixedNow }
	if configure != nil {
		configure(&cfg)
	}
	hs.h = auditlog.New(cfg)
	return hs
}
