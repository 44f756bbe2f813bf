package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"

	"github.com/goliatone/go-dirsync/core"
	"github.com/goliatone/go-dirsync/retry"
)

type slicePager[T any] struct {
	pages [][]T
	next  int
}

func (p *slicePager[T]) NextPage(context.Context) ([]T, bool, error) {
	if p.next >= len(p.pages) {
		return nil, false, nil
	}
	page := p.pages[p.next]
	p.next++
	return page, p.next < len(p.pages), nil
}

type fakeDirectory struct {
	groupPages  [][]core.DirectoryGroup
	userPages   [][]core.DirectoryUser
	memberships map[string][]string
	groupCalls  int
	userCalls   int
	filterErr   error
	pingErr     error
}

func (d *fakeDirectory) Groups(string, int) core.Pager[core.DirectoryGroup] {
	d.groupCalls++
	return &slicePager[core.DirectoryGroup]{pages: d.groupPages}
}

func (d *fakeDirectory) Users(int) core.Pager[core.DirectoryUser] {
	d.userCalls++
	return &slicePager[core.DirectoryUser]{pages: d.userPages}
}

func (d *fakeDirectory) UserGroupIDs(_ context.Context, userID string) ([]string, error) {
	return d.memberships[userID], nil
}

func (d *fakeDirectory) ValidateGroupFilter(context.Context, string) error { return d.filterErr }

func (d *fakeDirectory) Ping(context.Context) error { return d.pingErr }

type fakeTarget struct {
	mu           stdsync.Mutex
	fieldPages   map[int][]core.FieldsPage
	records      map[string]*core.TargetRecord
	saved        []core.TargetRecord
	saveCalls    int
	saveErr      func(record core.TargetRecord) error
	nextRecordID int
	addedValues  []string
	pingErr      error
}

func findKey(appID int, fieldID int, value string) string {
	return fmt.Sprintf("%d/%d/%s", appID, fieldID, value)
}

func (c *fakeTarget) GetFieldsPage(_ context.Context, appID int, pageNumber int) (core.FieldsPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := c.fieldPages[appID]
	if pageNumber < 1 || pageNumber > len(pages) {
		return core.FieldsPage{}, fmt.Errorf("no page %d for app %d", pageNumber, appID)
	}
	return pages[pageNumber-1], nil
}

func (c *fakeTarget) FindRecordByValue(_ context.Context, appID int, fieldID int, value string) (*core.TargetRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[findKey(appID, fieldID, value)]
	if !ok {
		return nil, nil
	}
	clone := record.Clone()
	return &clone, nil
}

func (c *fakeTarget) SaveRecord(_ context.Context, record core.TargetRecord) (*core.SaveRecordResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveCalls++
	if c.saveErr != nil {
		if err := c.saveErr(record); err != nil {
			return nil, err
		}
	}
	created := record.IsNew()
	if created {
		c.nextRecordID++
		record.RecordID = c.nextRecordID
	}
	c.saved = append(c.saved, record.Clone())
	return &core.SaveRecordResult{RecordID: record.RecordID, Created: created}, nil
}

func (c *fakeTarget) AddListValue(_ context.Context, listID string, name string) (*core.ListValueResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addedValues = append(c.addedValues, listID+"/"+name)
	return &core.ListValueResult{ID: "lv_" + name}, nil
}

func (c *fakeTarget) Ping(context.Context) error { return c.pingErr }

func (c *fakeTarget) savedRecords() []core.TargetRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.TargetRecord(nil), c.saved...)
}

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Groups.AppID = 1
	cfg.Users.AppID = 2
	cfg.Retry.BackoffStepMS = 1
	cfg.Users.GroupsFieldID = 26
	cfg.Users.Status = core.StatusConfig{
		FieldID:         25,
		ActiveValueID:   "val_active",
		InactiveValueID: "val_inactive",
		ActiveGroups:    []string{"g1"},
	}
	return cfg
}

func testFieldPages() map[int][]core.FieldsPage {
	return map[int][]core.FieldsPage{
		1: {{
			Fields: []core.TargetField{
				{ID: 10, AppID: 1, Name: "Directory Id", Type: core.FieldTypeText},
				{ID: 11, AppID: 1, Name: "Name", Type: core.FieldTypeText},
				{ID: 12, AppID: 1, Name: "Description", Type: core.FieldTypeText},
			},
			PageNumber: 1,
			TotalPages: 1,
		}},
		2: {{
			Fields: []core.TargetField{
				{ID: 20, AppID: 2, Name: "Directory Id", Type: core.FieldTypeText},
				{ID: 21, AppID: 2, Name: "Username", Type: core.FieldTypeText},
				{ID: 22, AppID: 2, Name: "First Name", Type: core.FieldTypeText},
				{ID: 23, AppID: 2, Name: "Last Name", Type: core.FieldTypeText},
				{ID: 24, AppID: 2, Name: "Email Address", Type: core.FieldTypeText},
				{ID: 25, AppID: 2, Name: "Status", Type: core.FieldTypeChoiceSingle, ListID: "list_status", Values: []core.ListValue{
					{ID: "val_active", Name: "Active"},
					{ID: "val_inactive", Name: "Inactive"},
				}},
				{ID: 26, AppID: 2, Name: "Groups", Type: core.FieldTypeReference},
			},
			PageNumber: 1,
			TotalPages: 1,
		}},
	}
}

func TestProcessorRun_CreatesUpdatesAndLinksRecords(t *testing.T) {
	enabled := true
	existingGroup := core.NewTargetRecord(1, 100)
	existingGroup.SetValue(core.NewTextValue(10, "g1"))
	existingGroup.SetValue(core.NewTextValue(11, "Engineering"))
	existingGroup.SetValue(core.NewTextValue(12, "Old description"))

	directory := &fakeDirectory{
		groupPages: [][]core.DirectoryGroup{{
			{ID: "g1", DisplayName: "Engineering", Description: "Engineering team"},
			{ID: "g2", DisplayName: "Sales", Description: "Sales team"},
		}},
		userPages: [][]core.DirectoryUser{{
			{
				ID:                "u1",
				UserPrincipalName: "alex@example.com",
				GivenName:         "Alex",
				Surname:           "Roe",
				Mail:              "alex@example.com",
				AccountEnabled:    &enabled,
			},
		}},
		memberships: map[string][]string{"u1": {"g1", "g2"}},
	}
	target := &fakeTarget{
		fieldPages:   testFieldPages(),
		records:      map[string]*core.TargetRecord{findKey(1, 10, "g1"): &existingGroup},
		nextRecordID: 500,
	}

	processor, err := NewProcessor(testConfig(), ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	report, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Groups.Processed != 2 || report.Groups.Created != 1 || report.Groups.Updated != 1 {
		t.Fatalf("unexpected group stats %+v", report.Groups)
	}
	if report.Users.Processed != 1 || report.Users.Created != 1 {
		t.Fatalf("unexpected user stats %+v", report.Users)
	}

	var userRecord *core.TargetRecord
	var groupDiff *core.TargetRecord
	for _, record := range target.savedRecords() {
		record := record
		switch record.AppID {
		case 2:
			userRecord = &record
		case 1:
			if record.RecordID == 100 {
				groupDiff = &record
			}
		}
	}
	if groupDiff == nil {
		t.Fatalf("expected an update against the existing group record")
	}
	if value, ok := groupDiff.Value(12); !ok || value.Text != "Engineering team" {
		t.Fatalf("expected updated description in diff, got %+v", groupDiff.Values)
	}
	if _, ok := groupDiff.Value(11); ok {
		t.Fatalf("expected unchanged name omitted from diff")
	}

	if userRecord == nil {
		t.Fatalf("expected a created user record")
	}
	if value, ok := userRecord.Value(21); !ok || value.Text != "alex@example.com" {
		t.Fatalf("expected username from default mapping, got %+v", userRecord.Values)
	}
	status, ok := userRecord.Value(25)
	if !ok || status.Text != "val_active" {
		t.Fatalf("expected active status, got %+v", status)
	}
	references, ok := userRecord.Value(26)
	if !ok || len(references.Records) != 2 {
		t.Fatalf("expected two group references, got %+v", references)
	}
	if references.Records[0] != 100 || references.Records[1] != 501 {
		t.Fatalf("expected membership-ordered record ids, got %v", references.Records)
	}

	// Users carry a choice field, so they get a vocabulary walk before the
	// reconcile walk. The group catalog has no choice fields and is scanned
	// only once.
	if directory.groupCalls != 1 {
		t.Fatalf("expected a single group pager walk without choice fields, got %d", directory.groupCalls)
	}
	if directory.userCalls != 2 {
		t.Fatalf("expected vocabulary and reconcile user pager walks, got %d", directory.userCalls)
	}
}

func TestProcessorRun_UnmatchedDefaultMappingWarns(t *testing.T) {
	pages := testFieldPages()
	pages[1] = []core.FieldsPage{{
		Fields: []core.TargetField{
			{ID: 10, AppID: 1, Name: "Directory Id", Type: core.FieldTypeText},
			{ID: 11, AppID: 1, Name: "Name", Type: core.FieldTypeText},
		},
		PageNumber: 1,
		TotalPages: 1,
	}}
	directory := &fakeDirectory{
		groupPages: [][]core.DirectoryGroup{{{ID: "g1", DisplayName: "Engineering"}}},
		userPages:  [][]core.DirectoryUser{nil},
	}
	target := &fakeTarget{fieldPages: pages, records: map[string]*core.TargetRecord{}}

	processor, err := NewProcessor(testConfig(), ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	report, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	found := false
	for _, warning := range report.Warnings {
		if warning.Collection == core.CollectionGroups && warning.EntityID == "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning for the unmatched default mapping, got %v", report.Warnings)
	}
	if report.Groups.Created != 1 {
		t.Fatalf("expected the run to proceed past the warning, got %+v", report.Groups)
	}
}

func TestProcessorRun_ConnectionFailureExitsEarly(t *testing.T) {
	directory := &fakeDirectory{pingErr: fmt.Errorf("dial tcp: refused")}
	target := &fakeTarget{fieldPages: testFieldPages()}

	processor, err := NewProcessor(testConfig(), ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	_, err = processor.Run(context.Background())
	if err == nil {
		t.Fatalf("expected connection failure")
	}
	if core.ExitCode(err) != core.ExitConnection {
		t.Fatalf("expected exit code %d, got %d", core.ExitConnection, core.ExitCode(err))
	}
	if target.saveCalls != 0 {
		t.Fatalf("expected no writes after a failed connection check")
	}
}

func TestProcessorRun_InvalidMappingsAbortBeforeSync(t *testing.T) {
	cfg := testConfig()
	cfg.Users.Mappings = map[int]string{21: "nickname"}
	directory := &fakeDirectory{
		groupPages: [][]core.DirectoryGroup{{{ID: "g1", DisplayName: "Engineering"}}},
		userPages:  [][]core.DirectoryUser{nil},
	}
	target := &fakeTarget{fieldPages: testFieldPages()}

	processor, err := NewProcessor(cfg, ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	_, err = processor.Run(context.Background())
	if err == nil {
		t.Fatalf("expected invalid mapping failure")
	}
	if core.ExitCode(err) != core.ExitInvalidMapping {
		t.Fatalf("expected exit code %d, got %d", core.ExitInvalidMapping, core.ExitCode(err))
	}
	if target.saveCalls != 0 {
		t.Fatalf("expected no writes after failed validation")
	}
}

func TestProcessorRun_InvalidGroupFilterAborts(t *testing.T) {
	cfg := testConfig()
	cfg.GroupFilter = core.GroupFilter{Property: "displayName", Pattern: "("}
	directory := &fakeDirectory{}
	target := &fakeTarget{fieldPages: testFieldPages()}

	processor, err := NewProcessor(cfg, ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	_, err = processor.Run(context.Background())
	if err == nil {
		t.Fatalf("expected group filter failure")
	}
	if core.ExitCode(err) != core.ExitInvalidFilter {
		t.Fatalf("expected exit code %d, got %d", core.ExitInvalidFilter, core.ExitCode(err))
	}
}

func TestProcessorRun_GroupFilterRestrictsEntities(t *testing.T) {
	cfg := testConfig()
	cfg.GroupFilter = core.GroupFilter{Property: "displayName", Pattern: "^Test"}
	directory := &fakeDirectory{
		groupPages: [][]core.DirectoryGroup{{
			{ID: "g1", DisplayName: "Test Group"},
			{ID: "g2", DisplayName: "Production"},
		}},
		userPages: [][]core.DirectoryUser{nil},
	}
	target := &fakeTarget{fieldPages: testFieldPages(), records: map[string]*core.TargetRecord{}}

	processor, err := NewProcessor(cfg, ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	report, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Groups.Processed != 1 || report.Groups.Created != 1 {
		t.Fatalf("expected only the matching group processed, got %+v", report.Groups)
	}
}

func TestProcessorRun_CreateRetriesThenDegradesToWarning(t *testing.T) {
	directory := &fakeDirectory{
		groupPages: [][]core.DirectoryGroup{{{ID: "g1", DisplayName: "Engineering"}}},
		userPages:  [][]core.DirectoryUser{nil},
	}
	target := &fakeTarget{fieldPages: testFieldPages(), records: map[string]*core.TargetRecord{}}
	target.saveErr = func(core.TargetRecord) error {
		return retry.StatusError{StatusCode: 503, Operation: "save record"}
	}

	processor, err := NewProcessor(testConfig(), ProcessorDependencies{Directory: directory, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	report, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("expected entity failure to stay non-fatal, got %v", err)
	}

	if target.saveCalls != 3 {
		t.Fatalf("expected exactly 3 save attempts, got %d", target.saveCalls)
	}
	if report.Groups.Failed != 1 || report.Groups.Created != 0 {
		t.Fatalf("unexpected group stats %+v", report.Groups)
	}
	if len(report.Warnings) == 0 {
		t.Fatalf("expected a warning for the failed create")
	}
}

func TestProcessor_ValidateMappings(t *testing.T) {
	cfg := testConfig()
	cfg.Users.Mappings = map[int]string{21: "userPrincipalName", 24: "nickname"}
	target := &fakeTarget{fieldPages: testFieldPages()}

	processor, err := NewProcessor(cfg, ProcessorDependencies{Directory: &fakeDirectory{}, Target: target})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	result, err := processor.ValidateMappings(context.Background(), core.CollectionUsers)
	if err != nil {
		t.Fatalf("validate mappings: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid result for unknown property")
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Code == "property_not_found" && issue.FieldID == 24 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected property_not_found for field 24, got %v", result.Issues)
	}
}

func TestNewProcessorFromProvider_LayersConfigSources(t *testing.T) {
	directory := &fakeDirectory{}
	target := &fakeTarget{}

	// Runtime alone is invalid: the app ids only arrive through the file
	// layer, and the runtime page size must beat the file's.
	runtime := core.Config{PageSize: 25}
	deps := ProcessorDependencies{
		Directory: directory,
		Target:    target,
		ConfigProvider: core.NewCfgxConfigProvider(core.NewStaticRawConfigLoader(map[string]any{
			"page_size": 50,
			"groups":    map[string]any{"app_id": 1},
			"users":     map[string]any{"app_id": 2},
		})),
	}

	processor, err := NewProcessorFromProvider(context.Background(), runtime, deps)
	if err != nil {
		t.Fatalf("new processor from provider: %v", err)
	}
	if processor.config.PageSize != 25 {
		t.Fatalf("expected runtime page size 25 to win, got %d", processor.config.PageSize)
	}
	if processor.config.Groups.AppID != 1 || processor.config.Users.AppID != 2 {
		t.Fatalf("expected file app ids 1/2, got %d/%d",
			processor.config.Groups.AppID, processor.config.Users.AppID)
	}
	if processor.config.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4 to survive, got %d", processor.config.Concurrency)
	}
}

func TestNewProcessorFromProvider_DefaultsAloneFailValidation(t *testing.T) {
	deps := ProcessorDependencies{Directory: &fakeDirectory{}, Target: &fakeTarget{}}
	if _, err := NewProcessorFromProvider(context.Background(), core.Config{}, deps); err == nil {
		t.Fatalf("expected construction without app ids to fail")
	}
}
