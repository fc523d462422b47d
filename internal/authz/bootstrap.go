package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵，finance 继承 support，support 继承 readonly_auditor
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "support",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/payments", Action: "GET"},
				{Object: "/admin/payments/:id", Action: "GET"},
				{Object: "/admin/payments/:id/logs", Action: "GET"},
				{Object: "/admin/payments/:id/query", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "finance",
			Inherits: []string{"support"},
			Policies: []Policy{
				{Object: "/admin/payments/export", Action: "GET"},
				{Object: "/admin/payments/:id/refund", Action: "POST"},
				{Object: "/admin/payments/:id/close", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，幂等，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		seedChanged, err := s.applyRoleSeed(seed)
		if err != nil {
			return err
		}
		changed = changed || seedChanged
	}

	if !changed {
		return nil
	}
	return s.saveAndReload()
}

func (s *Service) applyRoleSeed(seed RoleSeed) (bool, error) {
	role, err := NormalizeRole(seed.Role)
	if err != nil {
		return false, err
	}

	changed := false

	exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
	if err != nil {
		return false, fmt.Errorf("check builtin role failed: %w", err)
	}
	if !exists {
		added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return false, fmt.Errorf("create builtin role failed: %w", err)
		}
		changed = changed || added
	}

	for _, parent := range seed.Inherits {
		parentRole, err := NormalizeRole(parent)
		if err != nil {
			return false, err
		}
		added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
		if err != nil {
			return false, fmt.Errorf("link role inheritance failed: %w", err)
		}
		changed = changed || added
	}

	for _, policy := range seed.Policies {
		action := NormalizeAction(policy.Action)
		if action == "" {
			return false, fmt.Errorf("builtin policy action is required")
		}
		added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
		if err != nil {
			return false, fmt.Errorf("add builtin policy failed: %w", err)
		}
		changed = changed || added
	}

	return changed, nil
}
