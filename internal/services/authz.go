package services

// 授权检查：以显式函数取代“当前用户”全局态或装饰器。
// 每个需要鉴权的操作在入口处调用这些函数并向上返回类型化错误。

// AdminUserID 为管理员的固定用户 id。管理员身份不设角色标记，
// 第一个建立的账号（id=1）即站点唯一管理员。
const AdminUserID uint64 = 1

// AnonymousID 为未登录身份的哨兵值。
const AnonymousID uint64 = 0

// IsAdministrator 判断给定身份是否为管理员。
func IsAdministrator(identity uint64) bool { return identity == AdminUserID }

// RequireAuthenticated 要求调用方已登录，否则返回 ErrUnauthenticated。
func RequireAuthenticated(identity uint64) error {
	if identity == AnonymousID {
		return ErrUnauthenticated
	}
	return nil
}

// RequireAdministrator 要求调用方已登录且为管理员。
// 已登录的非管理员得到 ErrForbidden（硬性拒绝，不重定向登录）。
func RequireAdministrator(identity uint64) error {
	if err := RequireAuthenticated(identity); err != nil {
		return err
	}
	if !IsAdministrator(identity) {
		return ErrForbidden
	}
	return nil
}
