package pushrules

import "strings"

// DefaultRuleSet はユーザーIDに対するサーバー既定のルールセットを返す。
// 返すルールはすべて Default=true。
func DefaultRuleSet(userID string) *RuleSet {
	rs := NewRuleSet()
	for _, r := range defaultOverrideRules(userID) {
		rs.Override.Upsert(r)
	}
	rs.Content.Upsert(defaultContainsUserName(localpart(userID)))
	for _, r := range defaultUnderrideRules() {
		rs.Underride.Upsert(r)
	}
	return rs
}

// localpart は "@alice:example.org" から "alice" を取り出す。
func localpart(userID string) string {
	lp := strings.TrimPrefix(userID, "@")
	if i := strings.IndexByte(lp, ':'); i >= 0 {
		lp = lp[:i]
	}
	return lp
}

func eventMatch(key, pattern string) *Condition {
	return &Condition{Kind: EventMatchCondition, Key: key, Pattern: pattern}
}

func notify() *Action { return NewAction(NotifyAction) }

func defaultRule(id string, actions []*Action, conds ...*Condition) *Rule {
	if conds == nil {
		conds = []*Condition{}
	}
	return &Rule{RuleID: id, Default: true, Enabled: true, Actions: actions, Conditions: conds}
}

func defaultOverrideRules(userID string) []*Rule {
	master := defaultRule(".m.rule.master", []*Action{})
	master.Enabled = false

	return []*Rule{
		master,
		defaultRule(".m.rule.suppress_notices", []*Action{},
			eventMatch("content.msgtype", "m.notice")),
		defaultRule(".m.rule.invite_for_me",
			[]*Action{notify(), NewTweak(SoundTweak, "default")},
			eventMatch("type", "m.room.member"),
			eventMatch("content.membership", "invite"),
			eventMatch("state_key", userID)),
		defaultRule(".m.rule.member_event", []*Action{},
			eventMatch("type", "m.room.member")),
		defaultRule(".m.rule.contains_display_name",
			[]*Action{notify(), NewTweak(SoundTweak, "default"), NewTweak(HighlightTweak, nil)},
			&Condition{Kind: ContainsDisplayNameCondition}),
		defaultRule(".m.rule.tombstone",
			[]*Action{notify(), NewTweak(HighlightTweak, nil)},
			eventMatch("type", "m.room.tombstone"),
			eventMatch("state_key", "")),
		defaultRule(".m.rule.roomnotif",
			[]*Action{notify(), NewTweak(HighlightTweak, nil)},
			eventMatch("content.body", "@room"),
			&Condition{Kind: SenderNotificationPermissionCondition, Key: "room"}),
	}
}

func defaultContainsUserName(localpart string) *Rule {
	return &Rule{
		RuleID:  ".m.rule.contains_user_name",
		Default: true,
		Enabled: true,
		Pattern: localpart,
		Actions: []*Action{notify(), NewTweak(SoundTweak, "default"), NewTweak(HighlightTweak, nil)},
	}
}

func defaultUnderrideRules() []*Rule {
	noHighlight := func(extra ...*Action) []*Action {
		return append(append([]*Action{notify()}, extra...), NewTweak(HighlightTweak, false))
	}
	oneToOne := &Condition{Kind: RoomMemberCountCondition, Is: "2"}

	return []*Rule{
		defaultRule(".m.rule.call",
			noHighlight(NewTweak(SoundTweak, "ring")),
			eventMatch("type", "m.call.invite")),
		defaultRule(".m.rule.encrypted_room_one_to_one",
			noHighlight(NewTweak(SoundTweak, "default")),
			oneToOne, eventMatch("type", "m.room.encrypted")),
		defaultRule(".m.rule.room_one_to_one",
			noHighlight(NewTweak(SoundTweak, "default")),
			&Condition{Kind: RoomMemberCountCondition, Is: "2"}, eventMatch("type", "m.room.message")),
		defaultRule(".m.rule.message", noHighlight(),
			eventMatch("type", "m.room.message")),
		defaultRule(".m.rule.encrypted", noHighlight(),
			eventMatch("type", "m.room.encrypted")),
	}
}
