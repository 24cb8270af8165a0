package ruleengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/pushrules/internal/accountdata"
	"github.com/nao1215/pushrules/internal/pushrules"
	"github.com/nao1215/pushrules/pkg/event"
)

// Engine はプッシュルールの操作を提供する。
type Engine struct {
	// store はルールセットドキュメントを保存するストア。
	store accountdata.Store
	// locks はユーザー単位の読み書きロック。
	locks *userLocks
	// publisher は書き込み後の変更通知の発行先。
	publisher event.Publisher
	// metrics は操作のメトリクス。
	metrics *metrics
}

// Option はEngineの設定を変更する。
type Option func(*engineConfig)

type engineConfig struct {
	publisher  event.Publisher
	registerer prometheus.Registerer
}

// WithPublisher は変更通知の発行先を設定する。
func WithPublisher(p event.Publisher) Option {
	return func(c *engineConfig) { c.publisher = p }
}

// WithRegisterer はメトリクスの登録先を設定する。未設定の場合は登録しない。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *engineConfig) { c.registerer = reg }
}

// New は新しいEngineを生成する。
func New(store accountdata.Store, opts ...Option) *Engine {
	cfg := engineConfig{publisher: event.NopPublisher{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		store:     store,
		locks:     newUserLocks(),
		publisher: cfg.publisher,
		metrics:   newMetrics(cfg.registerer),
	}
}

// NewRule はユーザーが作成するルールの内容。
// Conditions は override / underride、Pattern は content でのみ使われる。
type NewRule struct {
	RuleID     string
	Actions    []*pushrules.Action
	Conditions []*pushrules.Condition
	Pattern    string
}

// Position は新しいルールを置く位置。両方空の場合は既存位置での置き換えか末尾への追加になる。
type Position struct {
	// Before はこのrule_idの直前に置く。
	Before string
	// After はこのrule_idの直後に置く。
	After string
}

// GetAll はユーザーのルールセット全体を返す。
func (e *Engine) GetAll(ctx context.Context, userID string) (_ *pushrules.RuleSet, err error) {
	defer e.metrics.observe("get_all", time.Now(), &err)

	doc, err := e.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doc.Global, nil
}

// GetRule は1件のルールを返す。ルールが存在しない場合は ErrNotFound を返す。
// 未サポートの種別はルールが存在しない扱いになる。
func (e *Engine) GetRule(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string) (_ *pushrules.Rule, err error) {
	defer e.metrics.observe("get_rule", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return nil, err
	}
	doc, err := e.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	rule, ok := doc.Global.Find(kind, ruleID)
	if !ok {
		return nil, fmt.Errorf("%w: プッシュルール %s/%s", ErrNotFound, kind, ruleID)
	}
	return rule, nil
}

// PutRule はユーザー定義ルールを作成または置き換える。
// 作成されるルールは常に default=false, enabled=true になる。
func (e *Engine) PutRule(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, nr NewRule, pos Position) (err error) {
	defer e.metrics.observe("put_rule", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return err
	}
	if err := validateNewRule(kind, nr, pos); err != nil {
		return err
	}

	return e.mutate(ctx, userID, "put_rule", kind, nr.RuleID, func(rs *pushrules.RuleSet) error {
		l := rs.List(kind)
		if l == nil {
			return nil
		}
		if existing, ok := l.Find(nr.RuleID); ok && existing.Default {
			return ErrDefaultRule
		}

		rule := &pushrules.Rule{
			RuleID:  nr.RuleID,
			Default: false,
			Enabled: true,
			Actions: pushrules.CloneActions(nr.Actions),
		}
		switch kind {
		case pushrules.OverrideKind, pushrules.UnderrideKind:
			rule.Conditions = pushrules.CloneConditions(nr.Conditions)
		case pushrules.ContentKind:
			rule.Pattern = nr.Pattern
		}

		var err error
		switch {
		case pos.Before != "":
			err = l.InsertBefore(rule, pos.Before)
		case pos.After != "":
			err = l.InsertAfter(rule, pos.After)
		default:
			l.Upsert(rule)
		}
		if errors.Is(err, pushrules.ErrRuleNotFound) {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return err
	})
}

// GetActions はルールのアクション列を返す。ルールが存在しない場合は空の列を返す。
func (e *Engine) GetActions(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string) (_ []*pushrules.Action, err error) {
	defer e.metrics.observe("get_actions", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return nil, err
	}
	doc, err := e.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	rule, ok := doc.Global.Find(kind, ruleID)
	if !ok {
		return []*pushrules.Action{}, nil
	}
	return pushrules.CloneActions(rule.Actions), nil
}

// SetActions はルールのアクション列を置き換える。ルールが存在しない場合は何もしない。
// ルールの位置は変わらない。
func (e *Engine) SetActions(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string, actions []*pushrules.Action) (err error) {
	defer e.metrics.observe("set_actions", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return err
	}
	return e.mutate(ctx, userID, "set_actions", kind, ruleID, func(rs *pushrules.RuleSet) error {
		if rule, ok := rs.Find(kind, ruleID); ok {
			rule.Actions = pushrules.CloneActions(actions)
		}
		return nil
	})
}

// GetEnabled はルールの有効状態を返す。ルールが存在しない場合はfalseを返す。
func (e *Engine) GetEnabled(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string) (_ bool, err error) {
	defer e.metrics.observe("get_enabled", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return false, err
	}
	doc, err := e.read(ctx, userID)
	if err != nil {
		return false, err
	}
	rule, ok := doc.Global.Find(kind, ruleID)
	return ok && rule.Enabled, nil
}

// SetEnabled はルールの有効状態を変更する。ルールが存在しない場合は何もしない。
// ルールの位置は変わらない。
func (e *Engine) SetEnabled(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string, enabled bool) (err error) {
	defer e.metrics.observe("set_enabled", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return err
	}
	return e.mutate(ctx, userID, "set_enabled", kind, ruleID, func(rs *pushrules.RuleSet) error {
		if rule, ok := rs.Find(kind, ruleID); ok {
			rule.Enabled = enabled
		}
		return nil
	})
}

// DeleteRule はルールを削除する。ルールが存在しない場合は何もしない。
// サーバー既定のルールは削除できない。
func (e *Engine) DeleteRule(ctx context.Context, userID string, scope pushrules.Scope, kind pushrules.Kind, ruleID string) (err error) {
	defer e.metrics.observe("delete_rule", time.Now(), &err)

	if err := checkScope(scope); err != nil {
		return err
	}
	return e.mutate(ctx, userID, "delete_rule", kind, ruleID, func(rs *pushrules.RuleSet) error {
		if rule, ok := rs.Find(kind, ruleID); ok && rule.Default {
			return ErrDefaultRule
		}
		rs.Remove(kind, ruleID)
		return nil
	})
}

// Provision はユーザーのルールセットドキュメントが無ければ作成する。
// 既に存在する場合は何もせずfalseを返す。
func (e *Engine) Provision(ctx context.Context, userID string, rs *pushrules.RuleSet) (created bool, err error) {
	defer e.metrics.observe("provision", time.Now(), &err)

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, err = e.store.Get(ctx, userID, accountdata.DataTypePushRules)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, accountdata.ErrNotFound) {
		return false, err
	}

	content, err := pushrules.NewDocument(rs).Encode()
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rev, err := e.store.Update(ctx, userID, accountdata.DataTypePushRules, content, 0)
	if errors.Is(err, accountdata.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.publish(ctx, userID, rev, event.PushRulesUpdatedData{UserID: userID, Operation: "provision"})
	return true, nil
}

// read は読み取りロック下でドキュメントを取得してデコードする。
func (e *Engine) read(ctx context.Context, userID string) (*pushrules.Document, error) {
	unlock, err := e.locks.RLock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, _, err := e.load(ctx, userID)
	return doc, err
}

// mutate は書き込みロック下で 取得 → デコード → 変更 → エンコード → 書き込み を行う。
// fnがエラーを返した場合は書き込まない。ルールが無く何も変わらなかった場合も書き込む。
func (e *Engine) mutate(ctx context.Context, userID, op string, kind pushrules.Kind, ruleID string, fn func(rs *pushrules.RuleSet) error) error {
	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	doc, rev, err := e.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(doc.Global); err != nil {
		return err
	}
	content, err := doc.Encode()
	if err != nil {
		return err
	}

	// キャンセルされたリクエストの書き込みは外に出さない。
	if err := ctx.Err(); err != nil {
		return err
	}
	newRev, err := e.store.Update(ctx, userID, accountdata.DataTypePushRules, content, rev)
	if err != nil {
		return err
	}

	e.publish(ctx, userID, newRev, event.PushRulesUpdatedData{
		UserID:    userID,
		Operation: op,
		Kind:      string(kind),
		RuleID:    ruleID,
	})
	return nil
}

// load はドキュメントを取得してデコードし、読み取ったリビジョンと共に返す。
func (e *Engine) load(ctx context.Context, userID string) (*pushrules.Document, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	stored, err := e.store.Get(ctx, userID, accountdata.DataTypePushRules)
	if errors.Is(err, accountdata.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: ユーザー %s のプッシュルール", ErrNotFound, userID)
	}
	if err != nil {
		return nil, 0, err
	}

	doc, err := pushrules.Decode(stored.Content)
	if err != nil {
		log.Printf("[RuleEngine] ユーザー %s のプッシュルールが破損しています: %v", userID, err)
		return nil, 0, err
	}
	return doc, stored.Revision, nil
}

// publish は変更通知を発行する。失敗してもログに残すだけで操作自体は成功とする。
func (e *Engine) publish(ctx context.Context, userID string, revision uint64, data event.PushRulesUpdatedData) {
	ev, err := event.NewPushRulesUpdated(revision, data)
	if err != nil {
		log.Printf("[RuleEngine] 変更通知の生成に失敗: %v", err)
		return
	}
	if err := e.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("[RuleEngine] 変更通知の発行に失敗: user=%s op=%s: %v", userID, data.Operation, err)
	}
}

func checkScope(scope pushrules.Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: global以外のスコープはサポートしていません: %q", ErrInvalidParam, scope)
	}
	return nil
}

// validateNewRule は作成するルールの内容を検証する。
func validateNewRule(kind pushrules.Kind, nr NewRule, pos Position) error {
	switch {
	case nr.RuleID == "":
		return fmt.Errorf("%w: rule_idが空です", ErrInvalidParam)
	case strings.HasPrefix(nr.RuleID, "."):
		return fmt.Errorf("%w: '.'で始まるrule_idはサーバー既定のルール用に予約されています", ErrInvalidParam)
	case kind == pushrules.ContentKind && nr.Pattern == "":
		return fmt.Errorf("%w: contentルールにはpatternが必要です", ErrInvalidParam)
	case pos.Before != "" && pos.After != "":
		return fmt.Errorf("%w: beforeとafterは同時に指定できません", ErrInvalidParam)
	}
	return nil
}
