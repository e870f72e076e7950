package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：调用方可处理的业务错误（输入有误、资源缺失、冲突等）
// - 5xxx：系统或上游错误（需要中断流程）
const (
	OK               = 0
	InvalidInput     = 4000
	ResourceMissing  = 4004
	Conflict         = 4009
	RateLimited      = 4029
	SystemError      = 5000
	ProviderError    = 5020
	ProviderBadReply = 5022
)
