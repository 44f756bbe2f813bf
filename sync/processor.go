package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/goliatone/go-dirsync/core"
	"github.com/goliatone/go-dirsync/retry"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Run phases in execution order. Connectivity and configuration problems
// surface before any entity is read; per-entity failures never abort a run.
const (
	PhaseVerifyConnections   = "verify_connections"
	PhaseValidateGroupFilter = "validate_group_filter"
	PhaseRefreshCatalog      = "refresh_catalog"
	PhaseSeedDefaultMappings = "seed_default_mappings"
	PhaseValidateMappings    = "validate_field_mappings"
	PhaseSyncGroups          = "sync_groups"
	PhaseSyncUsers           = "sync_users"
)

type defaultMapping struct {
	Property  string
	FieldName string
}

var defaultGroupMappings = []defaultMapping{
	{Property: "id", FieldName: "Directory Id"},
	{Property: "displayName", FieldName: "Name"},
	{Property: "description", FieldName: "Description"},
}

var defaultUserMappings = []defaultMapping{
	{Property: "id", FieldName: "Directory Id"},
	{Property: "userPrincipalName", FieldName: "Username"},
	{Property: "givenName", FieldName: "First Name"},
	{Property: "surname", FieldName: "Last Name"},
	{Property: "mail", FieldName: "Email Address"},
}

// ProcessorDependencies carries the collaborators a Processor needs. Target
// is wrapped with the run's retry policy by the constructor; pass an already
// wrapped client only if you want a different policy per call site.
type ProcessorDependencies struct {
	Directory core.DirectoryClient
	Target    core.TargetClient
	Logger    core.Logger
	Metrics   core.MetricsRecorder
	RunStore  core.RunStore
	Policy    *retry.Policy
	Now       func() time.Time

	// ConfigProvider and OptionsResolver feed NewProcessorFromProvider;
	// nil means the cfgx file provider and the go-options resolver.
	ConfigProvider  core.ConfigProvider
	OptionsResolver core.OptionsResolver
}

// Processor drives one full reconciliation pass: connection checks, catalog
// refresh, mapping validation, then group and user synchronization.
type Processor struct {
	config    core.Config
	directory core.DirectoryClient
	target    core.TargetClient
	catalog   *core.FieldCatalog
	validator *core.MappingValidator
	vocab     *core.VocabularySynchronizer
	builder   *core.RecordBuilder
	logger    core.Logger
	metrics   core.MetricsRecorder
	runs      core.RunStore
	now       func() time.Time

	groupMappings core.FieldMappings
	userMappings  core.FieldMappings

	// syncedGroups maps directory group ids to target record ids; written
	// during the group pass, read during the user pass.
	groupsMu     stdsync.Mutex
	syncedGroups map[string]int
}

func NewProcessor(config core.Config, deps ProcessorDependencies) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("sync: directory client is required")
	}
	if deps.Target == nil {
		return nil, fmt.Errorf("sync: target client is required")
	}

	logger := glog.Ensure(deps.Logger)
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	policy := PolicyFromConfig(config.Retry)
	if deps.Policy != nil {
		policy = *deps.Policy
	}
	target := core.TargetClient(NewRetryingTargetClient(deps.Target, policy))

	catalog := core.NewFieldCatalog()
	status := core.NewStatusResolver(config.Users.Status)

	return &Processor{
		config:        config,
		directory:     deps.Directory,
		target:        target,
		catalog:       catalog,
		validator:     core.NewMappingValidator(),
		vocab:         core.NewVocabularySynchronizer(catalog, target, logger),
		builder:       core.NewRecordBuilder(catalog, status, config.Users.GroupsFieldID),
		logger:        logger,
		metrics:       metrics,
		runs:          deps.RunStore,
		now:           now,
		groupMappings: config.GroupMappings(),
		userMappings:  config.UserMappings(),
		syncedGroups:  map[string]int{},
	}, nil
}

// NewProcessorFromProvider resolves the effective configuration before
// construction: package defaults first, then the provider's configuration
// source, then the runtime overrides, each layer taking precedence over the
// previous one.
func NewProcessorFromProvider(ctx context.Context, runtime core.Config, deps ProcessorDependencies) (*Processor, error) {
	provider := deps.ConfigProvider
	if provider == nil {
		provider = core.NewCfgxConfigProvider(nil)
	}
	resolver := deps.OptionsResolver
	if resolver == nil {
		resolver = core.GoOptionsResolver{}
	}

	defaults := core.DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return nil, fmt.Errorf("sync: config load failed: %w", err)
	}
	cfg, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return nil, err
	}
	return NewProcessor(cfg, deps)
}

// Run executes the reconciliation pass. The returned report is populated even
// when the run fails; the error's exit code distinguishes connectivity,
// mapping, and filter failures from everything else.
func (p *Processor) Run(ctx context.Context) (RunReport, error) {
	if p == nil {
		return RunReport{}, fmt.Errorf("sync: processor is not configured")
	}

	startedAt := p.now()
	collector := newReportCollector(uuid.NewString(), startedAt)
	p.persistRunStart(ctx, collector.report.RunID, startedAt)

	err := p.execute(ctx, collector)
	report := collector.snapshot(p.now())
	p.persistRunEnd(ctx, report, err)

	if err != nil {
		p.logger.Error("sync run failed", "run_id", report.RunID, "error", err)
		return report, err
	}
	p.logger.Info(
		"sync run completed",
		"run_id", report.RunID,
		"groups_processed", report.Groups.Processed,
		"users_processed", report.Users.Processed,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (p *Processor) execute(ctx context.Context, collector *reportCollector) error {
	steps := []struct {
		phase string
		run   func(context.Context, *reportCollector) error
	}{
		{PhaseVerifyConnections, p.verifyConnections},
		{PhaseValidateGroupFilter, p.validateGroupFilter},
		{PhaseRefreshCatalog, p.refreshCatalogs},
		{PhaseSeedDefaultMappings, p.seedDefaultMappings},
		{PhaseValidateMappings, p.validateFieldMappings},
		{PhaseSyncGroups, p.syncGroups},
		{PhaseSyncUsers, p.syncUsers},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := p.now()
		err := step.run(ctx, collector)
		collector.phase(step.phase, p.now().Sub(start))
		if err != nil {
			return err
		}
		p.logger.Debug("phase completed", "phase", step.phase)
	}
	return nil
}

func (p *Processor) verifyConnections(ctx context.Context, _ *reportCollector) error {
	if err := p.directory.Ping(ctx); err != nil {
		return core.ConnectionError("directory", err)
	}
	if err := p.target.Ping(ctx); err != nil {
		return core.ConnectionError("target", err)
	}
	return nil
}

func (p *Processor) validateGroupFilter(ctx context.Context, _ *reportCollector) error {
	if !p.config.GroupFilter.Configured() {
		return nil
	}
	return p.config.GroupFilter.Validate(ctx, p.directory)
}

func (p *Processor) refreshCatalogs(ctx context.Context, _ *reportCollector) error {
	if err := p.catalog.Refresh(ctx, p.target, core.CollectionGroups, p.config.Groups.AppID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: group field catalog refresh failed").
			WithTextCode(core.SyncErrorInternal)
	}
	if err := p.catalog.Refresh(ctx, p.target, core.CollectionUsers, p.config.Users.AppID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: user field catalog refresh failed").
			WithTextCode(core.SyncErrorInternal)
	}
	return nil
}

// seedDefaultMappings fills well-known target fields that the configuration
// leaves unmapped. Explicit configuration always wins; a default whose field
// is absent from the catalog produces a run warning and nothing else.
func (p *Processor) seedDefaultMappings(_ context.Context, collector *reportCollector) error {
	p.seedCollection(collector, core.CollectionGroups, p.groupMappings, defaultGroupMappings)
	p.seedCollection(collector, core.CollectionUsers, p.userMappings, defaultUserMappings)
	return nil
}

func (p *Processor) seedCollection(
	collector *reportCollector,
	collection core.Collection,
	mappings core.FieldMappings,
	defaults []defaultMapping,
) {
	for _, def := range defaults {
		field, found := p.catalog.FieldByName(collection, def.FieldName)
		if !found {
			collector.warn(collection, "", fmt.Sprintf("default mapping target field %q not found", def.FieldName))
			p.logger.Warn(
				"default mapping field missing from catalog",
				"collection", string(collection),
				"field_name", def.FieldName,
				"property", def.Property,
			)
			continue
		}
		if _, mapped := mappings.PropertyFor(field.ID); mapped {
			continue
		}
		mappings[field.ID] = def.Property
		p.logger.Debug(
			"seeded default mapping",
			"collection", string(collection),
			"field_id", field.ID,
			"property", def.Property,
		)
	}
}

func (p *Processor) validateFieldMappings(_ context.Context, _ *reportCollector) error {
	for _, collection := range []core.Collection{core.CollectionGroups, core.CollectionUsers} {
		issues := p.mappingIssues(collection)
		if hasErrorIssue(issues) {
			for _, issue := range issues {
				p.logger.Error(
					"field mapping issue",
					"collection", string(collection),
					"code", issue.Code,
					"field_id", issue.FieldID,
					"property", issue.Property,
					"message", issue.Message,
				)
			}
			return core.InvalidMappingsError(collection, issues)
		}
	}
	return nil
}

// ValidateMappings refreshes one collection's field catalog and reports the
// mapping issues a full run would fail on, without touching any records.
func (p *Processor) ValidateMappings(ctx context.Context, collection core.Collection) (core.ValidationResult, error) {
	if p == nil {
		return core.ValidationResult{}, fmt.Errorf("sync: processor is not configured")
	}
	appID := p.config.Groups.AppID
	if collection == core.CollectionUsers {
		appID = p.config.Users.AppID
	}
	if err := p.catalog.Refresh(ctx, p.target, collection, appID); err != nil {
		return core.ValidationResult{}, goerrors.Wrap(err, goerrors.CategoryExternal, "sync: field catalog refresh failed").
			WithTextCode(core.SyncErrorInternal)
	}
	issues := p.mappingIssues(collection)
	return core.ValidationResult{Valid: !hasErrorIssue(issues), Issues: issues}, nil
}

func (p *Processor) mappingIssues(collection core.Collection) []core.MappingIssue {
	mappings := p.groupMappings
	keyProperty := p.config.Groups.KeyProperty
	if collection == core.CollectionUsers {
		mappings = p.userMappings
		keyProperty = p.config.Users.KeyProperty
	}

	registry := core.RegistryForCollection(collection)
	result := p.validator.Validate(p.catalog, collection, mappings, registry)
	issues := result.Issues
	if _, mapped := mappings.FieldIDFor(keyProperty); !mapped {
		issues = append(issues, core.MappingIssue{
			Code:     "key_property_unmapped",
			Message:  fmt.Sprintf("key property %q has no field mapping", keyProperty),
			Property: keyProperty,
			Severity: core.MappingIssueError,
		})
	}
	return issues
}

func hasErrorIssue(issues []core.MappingIssue) bool {
	for _, issue := range issues {
		if issue.Severity == core.MappingIssueError {
			return true
		}
	}
	return false
}

func (p *Processor) syncGroups(ctx context.Context, collector *reportCollector) error {
	appID := p.config.Groups.AppID

	if err := p.syncGroupVocabulary(ctx); err != nil {
		return err
	}

	pager := p.directory.Groups(p.config.GroupFilter.Expression(), p.config.PageSize)
	for {
		groups, more, err := pager.NextPage(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: group page read failed").
				WithTextCode(core.SyncErrorInternal)
		}

		matched := p.matchingGroups(ctx, groups)
		p.processPage(ctx, len(matched), func(i int) {
			p.reconcileGroup(ctx, collector, appID, matched[i])
		})

		if !more {
			return nil
		}
	}
}

func (p *Processor) syncGroupVocabulary(ctx context.Context) error {
	// No choice fields means no vocabulary to grow; skip the extra scan.
	if len(p.catalog.ChoiceFields(core.CollectionGroups)) == 0 {
		return nil
	}
	pager := p.directory.Groups(p.config.GroupFilter.Expression(), p.config.PageSize)
	for {
		groups, more, err := pager.NextPage(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: group page read failed").
				WithTextCode(core.SyncErrorInternal)
		}
		matched := p.matchingGroups(ctx, groups)
		entities := make([]core.DirectoryEntity, 0, len(matched))
		for _, group := range matched {
			entities = append(entities, group)
		}
		if err := p.vocab.SyncListValues(ctx, core.CollectionGroups, p.groupMappings, entities); err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return p.vocab.Refresh(ctx, core.CollectionGroups, p.config.Groups.AppID)
}

func (p *Processor) matchingGroups(ctx context.Context, groups []core.DirectoryGroup) []core.DirectoryGroup {
	if !p.config.GroupFilter.Configured() {
		return groups
	}
	matched := make([]core.DirectoryGroup, 0, len(groups))
	for _, group := range groups {
		if p.config.GroupFilter.IsMatch(ctx, group) {
			matched = append(matched, group)
		}
	}
	return matched
}

func (p *Processor) reconcileGroup(ctx context.Context, collector *reportCollector, appID int, group core.DirectoryGroup) {
	keyFieldID, keyValue, ok := p.entityKey(core.CollectionGroups, group, p.config.Groups.KeyProperty, p.groupMappings)
	if !ok {
		collector.warn(core.CollectionGroups, group.EntityID(), "key value could not be resolved")
		collector.record(core.CollectionGroups, outcomeSkipped)
		return
	}

	existing, err := p.target.FindRecordByValue(ctx, appID, keyFieldID, keyValue)
	if err != nil {
		p.entityFailed(ctx, collector, core.CollectionGroups, group.EntityID(), "record lookup failed", err)
		return
	}

	if existing == nil {
		record := p.builder.BuildNewRecord(group, p.groupMappings, appID, nil)
		if record.Empty() {
			collector.record(core.CollectionGroups, outcomeSkipped)
			return
		}
		result, err := p.target.SaveRecord(ctx, record)
		if err != nil || result == nil {
			p.entityFailed(ctx, collector, core.CollectionGroups, group.EntityID(), "record create failed", err)
			return
		}
		p.rememberGroup(group.EntityID(), result.RecordID)
		p.recordSaved(ctx, collector, core.CollectionGroups, group.EntityID(), result, outcomeCreated)
		return
	}

	p.rememberGroup(group.EntityID(), existing.RecordID)
	diff := p.builder.BuildUpdatedRecord(group, *existing, p.groupMappings, nil)
	if diff.Empty() {
		p.logger.Debug("group unchanged", "group_id", group.EntityID(), "record_id", existing.RecordID)
		collector.record(core.CollectionGroups, outcomeSkipped)
		return
	}
	result, err := p.target.SaveRecord(ctx, diff)
	if err != nil || result == nil {
		p.entityFailed(ctx, collector, core.CollectionGroups, group.EntityID(), "record update failed", err)
		return
	}
	p.recordSaved(ctx, collector, core.CollectionGroups, group.EntityID(), result, outcomeUpdated)
}

func (p *Processor) syncUsers(ctx context.Context, collector *reportCollector) error {
	appID := p.config.Users.AppID

	if err := p.syncUserVocabulary(ctx); err != nil {
		return err
	}

	pager := p.directory.Users(p.config.PageSize)
	for {
		users, more, err := pager.NextPage(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: user page read failed").
				WithTextCode(core.SyncErrorInternal)
		}

		p.processPage(ctx, len(users), func(i int) {
			p.reconcileUser(ctx, collector, appID, users[i])
		})

		if !more {
			return nil
		}
	}
}

func (p *Processor) syncUserVocabulary(ctx context.Context) error {
	if len(p.catalog.ChoiceFields(core.CollectionUsers)) == 0 {
		return nil
	}
	pager := p.directory.Users(p.config.PageSize)
	for {
		users, more, err := pager.NextPage(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "sync: user page read failed").
				WithTextCode(core.SyncErrorInternal)
		}
		entities := make([]core.DirectoryEntity, 0, len(users))
		for _, user := range users {
			entities = append(entities, user)
		}
		if err := p.vocab.SyncListValues(ctx, core.CollectionUsers, p.userMappings, entities); err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return p.vocab.Refresh(ctx, core.CollectionUsers, p.config.Users.AppID)
}

func (p *Processor) reconcileUser(ctx context.Context, collector *reportCollector, appID int, user core.DirectoryUser) {
	groupIDs, err := p.directory.UserGroupIDs(ctx, user.ID)
	if err != nil {
		collector.warn(core.CollectionUsers, user.EntityID(), "group membership lookup failed: "+err.Error())
		groupIDs = nil
	}
	user.GroupIDs = groupIDs
	userCtx := &core.UserRecordContext{
		GroupIDs:       groupIDs,
		GroupRecordIDs: p.groupRecordIDs(groupIDs),
	}

	keyFieldID, keyValue, ok := p.entityKey(core.CollectionUsers, user, p.config.Users.KeyProperty, p.userMappings)
	if !ok {
		collector.warn(core.CollectionUsers, user.EntityID(), "key value could not be resolved")
		collector.record(core.CollectionUsers, outcomeSkipped)
		return
	}

	existing, err := p.target.FindRecordByValue(ctx, appID, keyFieldID, keyValue)
	if err != nil {
		p.entityFailed(ctx, collector, core.CollectionUsers, user.EntityID(), "record lookup failed", err)
		return
	}

	if existing == nil {
		record := p.builder.BuildNewRecord(user, p.userMappings, appID, userCtx)
		if record.Empty() {
			collector.record(core.CollectionUsers, outcomeSkipped)
			return
		}
		result, err := p.target.SaveRecord(ctx, record)
		if err != nil || result == nil {
			p.entityFailed(ctx, collector, core.CollectionUsers, user.EntityID(), "record create failed", err)
			return
		}
		p.recordSaved(ctx, collector, core.CollectionUsers, user.EntityID(), result, outcomeCreated)
		return
	}

	diff := p.builder.BuildUpdatedRecord(user, *existing, p.userMappings, userCtx)
	if diff.Empty() {
		p.logger.Debug("user unchanged", "user_id", user.EntityID(), "record_id", existing.RecordID)
		collector.record(core.CollectionUsers, outcomeSkipped)
		return
	}
	result, err := p.target.SaveRecord(ctx, diff)
	if err != nil || result == nil {
		p.entityFailed(ctx, collector, core.CollectionUsers, user.EntityID(), "record update failed", err)
		return
	}
	p.recordSaved(ctx, collector, core.CollectionUsers, user.EntityID(), result, outcomeUpdated)
}

// processPage fans a page's entities out over a bounded worker pool and waits
// for the whole page before the caller fetches the next one.
func (p *Processor) processPage(ctx context.Context, count int, work func(i int)) {
	if count == 0 {
		return
	}
	limit := p.config.Concurrency
	if limit < 1 {
		limit = 1
	}

	sem := make(chan struct{}, limit)
	var wg stdsync.WaitGroup
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			work(i)
		}(i)
	}
	wg.Wait()
}

// entityKey resolves the configured key property into the mapped target field
// id and the entity's key value.
func (p *Processor) entityKey(
	collection core.Collection,
	entity core.DirectoryEntity,
	keyProperty string,
	mappings core.FieldMappings,
) (int, string, bool) {
	fieldID, mapped := mappings.FieldIDFor(keyProperty)
	if !mapped {
		return 0, "", false
	}
	registry := core.RegistryForCollection(collection)
	accessor, ok := registry.Resolve(keyProperty)
	if !ok {
		return 0, "", false
	}
	value, ok := accessor.Get(entity).(string)
	if !ok || value == "" {
		return 0, "", false
	}
	return fieldID, value, true
}

func (p *Processor) rememberGroup(groupID string, recordID int) {
	if groupID == "" || recordID == 0 {
		return
	}
	p.groupsMu.Lock()
	p.syncedGroups[groupID] = recordID
	p.groupsMu.Unlock()
}

// groupRecordIDs filters a user's memberships down to groups that were
// reconciled earlier in this run, preserving membership order.
func (p *Processor) groupRecordIDs(groupIDs []string) []int {
	p.groupsMu.Lock()
	defer p.groupsMu.Unlock()

	recordIDs := make([]int, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		if recordID, ok := p.syncedGroups[groupID]; ok {
			recordIDs = append(recordIDs, recordID)
		}
	}
	return recordIDs
}

func (p *Processor) entityFailed(
	ctx context.Context,
	collector *reportCollector,
	collection core.Collection,
	entityID string,
	message string,
	err error,
) {
	detail := message
	if err != nil {
		detail = message + ": " + err.Error()
	}
	collector.warn(collection, entityID, detail)
	collector.record(collection, outcomeFailed)
	p.logger.Warn(message, "collection", string(collection), "entity_id", entityID, "error", err)
	p.metrics.IncCounter(ctx, "dirsync.entity.failed", 1, map[string]string{"collection": string(collection)})
}

func (p *Processor) recordSaved(
	ctx context.Context,
	collector *reportCollector,
	collection core.Collection,
	entityID string,
	result *core.SaveRecordResult,
	outcome entityOutcome,
) {
	for _, warning := range result.Warnings {
		collector.warn(collection, entityID, warning)
	}
	collector.record(collection, outcome)

	metric := "dirsync.entity.updated"
	if outcome == outcomeCreated {
		metric = "dirsync.entity.created"
	}
	p.metrics.IncCounter(ctx, metric, 1, map[string]string{"collection": string(collection)})
	p.logger.Debug(
		"record saved",
		"collection", string(collection),
		"entity_id", entityID,
		"record_id", result.RecordID,
		"created", outcome == outcomeCreated,
	)
}

func (p *Processor) persistRunStart(ctx context.Context, runID string, startedAt time.Time) {
	if p.runs == nil {
		return
	}
	run := core.SyncRun{ID: runID, Status: core.RunStatusRunning, StartedAt: startedAt}
	if _, err := p.runs.Create(ctx, run); err != nil {
		p.logger.Warn("run ledger create failed", "run_id", runID, "error", err)
	}
}

func (p *Processor) persistRunEnd(ctx context.Context, report RunReport, runErr error) {
	if p.runs == nil {
		return
	}
	status := core.RunStatusSucceeded
	lastError := ""
	if runErr != nil {
		status = core.RunStatusFailed
		lastError = runErr.Error()
	}
	if _, err := p.runs.Complete(ctx, report.ToSyncRun(status, lastError)); err != nil {
		p.logger.Warn("run ledger complete failed", "run_id", report.RunID, "error", err)
	}
}
