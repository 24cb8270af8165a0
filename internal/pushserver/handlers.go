package pushserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushrules/internal/pusher"
	"github.com/nao1215/pushrules/internal/pushrules"
	"github.com/nao1215/pushrules/internal/ruleengine"
	"github.com/nao1215/pushrules/pkg/middleware"
)

// ruleTarget はパスから取り出したルールの指定。
type ruleTarget struct {
	scope  pushrules.Scope
	kind   pushrules.Kind
	ruleID string
}

// requireScope はボディを解釈する前にスコープを検証する。
// サポートしないスコープなら400を返してfalseを返す。
func requireScope(c *gin.Context, t ruleTarget) bool {
	if t.scope.Valid() {
		return true
	}
	middleware.AbortWithError(c, http.StatusBadRequest, middleware.ErrCodeInvalidParam,
		fmt.Sprintf("global以外のスコープはサポートしていません: %q", t.scope))
	return false
}

func targetFromPath(c *gin.Context) ruleTarget {
	return ruleTarget{
		scope:  pushrules.Scope(c.Param("scope")),
		kind:   pushrules.Kind(c.Param("kind")),
		ruleID: c.Param("ruleId"),
	}
}

// putRuleRequest はルール作成リクエストのJSON構造。
type putRuleRequest struct {
	// Actions はマッチ時のアクション列。
	Actions []*pushrules.Action `json:"actions" binding:"required"`
	// Conditions はoverride / underride の条件。
	Conditions []*pushrules.Condition `json:"conditions"`
	// Pattern はcontentルールのパターン。
	Pattern string `json:"pattern"`
}

// actionsRequest はアクション更新リクエストのJSON構造。
type actionsRequest struct {
	// Actions は新しいアクション列。
	Actions []*pushrules.Action `json:"actions" binding:"required"`
}

// enabledRequest は有効状態更新リクエストのJSON構造。
type enabledRequest struct {
	// Enabled は新しい有効状態。
	Enabled *bool `json:"enabled" binding:"required"`
}

// handleGetAll はグローバルスコープを含むルールセット全体を返すハンドラ。
func (s *Server) handleGetAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		rs, err := s.engine.GetAll(c.Request.Context(), userID)
		if err != nil {
			writeError(c, "ルールセット取得", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{string(pushrules.GlobalScope): rs})
	}
}

// handleGetGlobal はグローバルスコープのルールセットを返すハンドラ。
func (s *Server) handleGetGlobal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		rs, err := s.engine.GetAll(c.Request.Context(), userID)
		if err != nil {
			writeError(c, "ルールセット取得", err)
			return
		}

		c.JSON(http.StatusOK, rs)
	}
}

// handleGetRule はルール1件を返すハンドラ。
func (s *Server) handleGetRule() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)

		rule, err := s.engine.GetRule(c.Request.Context(), userID, t.scope, t.kind, t.ruleID)
		if err != nil {
			writeError(c, "ルール取得", err)
			return
		}

		body, err := pushrules.MarshalRule(t.kind, rule)
		if err != nil {
			writeError(c, "ルールのエンコード", err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// handlePutRule はユーザー定義ルールを作成または置き換えるハンドラ。
// before / after クエリで兄弟ルールに対する位置を指定できる。
func (s *Server) handlePutRule() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)
		if !requireScope(c, t) {
			return
		}

		// 未サポートの種別ではボディを解釈できない。
		if !t.kind.Valid() {
			middleware.AbortWithError(c, http.StatusBadRequest, middleware.ErrCodeInvalidParam,
				fmt.Sprintf("未サポートのルール種別です: %q", t.kind))
			return
		}

		var req putRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadJSON(c, err)
			return
		}

		nr := ruleengine.NewRule{
			RuleID:     t.ruleID,
			Actions:    req.Actions,
			Conditions: req.Conditions,
			Pattern:    req.Pattern,
		}
		pos := ruleengine.Position{Before: c.Query("before"), After: c.Query("after")}
		if err := s.engine.PutRule(c.Request.Context(), userID, t.scope, t.kind, nr, pos); err != nil {
			writeError(c, "ルール作成", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}

// handleDeleteRule はルールを削除するハンドラ。
func (s *Server) handleDeleteRule() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)

		if err := s.engine.DeleteRule(c.Request.Context(), userID, t.scope, t.kind, t.ruleID); err != nil {
			writeError(c, "ルール削除", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}

// handleGetActions はルールのアクション列を返すハンドラ。
func (s *Server) handleGetActions() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)

		actions, err := s.engine.GetActions(c.Request.Context(), userID, t.scope, t.kind, t.ruleID)
		if err != nil {
			writeError(c, "アクション取得", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"actions": actions})
	}
}

// handleSetActions はルールのアクション列を置き換えるハンドラ。
func (s *Server) handleSetActions() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)
		if !requireScope(c, t) {
			return
		}

		var req actionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadJSON(c, err)
			return
		}

		if err := s.engine.SetActions(c.Request.Context(), userID, t.scope, t.kind, t.ruleID, req.Actions); err != nil {
			writeError(c, "アクション更新", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}

// handleGetEnabled はルールの有効状態を返すハンドラ。
func (s *Server) handleGetEnabled() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)

		enabled, err := s.engine.GetEnabled(c.Request.Context(), userID, t.scope, t.kind, t.ruleID)
		if err != nil {
			writeError(c, "有効状態取得", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"enabled": enabled})
	}
}

// handleSetEnabled はルールの有効状態を変更するハンドラ。
func (s *Server) handleSetEnabled() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		t := targetFromPath(c)
		if !requireScope(c, t) {
			return
		}

		var req enabledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadJSON(c, err)
			return
		}

		if err := s.engine.SetEnabled(c.Request.Context(), userID, t.scope, t.kind, t.ruleID, *req.Enabled); err != nil {
			writeError(c, "有効状態更新", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}

// handleGetPushers はユーザーのプッシャー一覧を返すハンドラ。
func (s *Server) handleGetPushers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		pushers, err := s.pushers.GetPushers(c.Request.Context(), userID)
		if err != nil {
			writeError(c, "プッシャー一覧取得", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"pushers": pushers})
	}
}

// handleSetPusher はプッシャーを登録・更新・削除するハンドラ。
func (s *Server) handleSetPusher() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req pusher.SetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadJSON(c, err)
			return
		}

		if err := s.pushers.SetPusher(c.Request.Context(), userID, req); err != nil {
			writeError(c, "プッシャー設定", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}
