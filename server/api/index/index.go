// Package index 提供服務主頁（landing page）。
//
// 主頁只做兩件事：確認服務活著、列出可用的 endpoints。
// 不依賴任何引擎狀態，保持 Zero-dependency（方便健康檢查）。
package index

import "net/http"

const indexHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <title>GammaLab</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 720px; margin: 48px auto; padding: 20px 24px; background:#111827; border:1px solid #1f2937; border-radius:12px; }
    h1 { margin: 0 0 8px; font-size: 22px; }
    p { color:#94a3b8; font-size: 14px; }
    code { background:#0b1224; border:1px solid #1f2738; border-radius:6px; padding:2px 6px; font-size:13px; }
    li { margin: 6px 0; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>GammaLab</h1>
    <p>Monte Carlo particle-state initialization service.</p>
    <ul>
      <li><code>GET/POST /v1/sample</code> — initialize particle states（forward/backward）</li>
      <li><code>GET/POST /v1/sim</code> — batch simulation statistics</li>
      <li><code>GET/POST /v1/simruns</code> — multi-run estimator report</li>
      <li><code>POST /v1/simbycfg</code> — simulate with inline scene config</li>
      <li><code>POST /v1/stat</code> — re-aggregate externally recorded samples</li>
      <li><code>GET /dev</code> — dev panel（dev mode only）</li>
    </ul>
  </div>
</body>
</html>`

func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
