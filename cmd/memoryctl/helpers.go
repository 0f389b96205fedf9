package main

import "agentmemory/internal/model"

func parseScopeType(s string) model.ScopeType {
	switch s {
	case "session":
		return model.ScopeSession
	case "org":
		return model.ScopeOrg
	case "global":
		return model.ScopeGlobal
	default:
		return model.ScopeProject
	}
}
