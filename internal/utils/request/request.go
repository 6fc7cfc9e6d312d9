package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// 出站调用统一不重试,失败直接上抛给调用方
var Request = resty.New().SetTransport(&http.Transport{
	Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
}).SetTimeout(10 * time.Second)
