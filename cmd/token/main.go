// Command token 以服务配置中的共享密钥签发临时 Access Token（运维与联调用）
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"name-rotation/backend/config"
	"name-rotation/backend/internal/api/middleware"
	"name-rotation/backend/pkg/jwt"
)

func main() {
	userID := flag.String("user", "ops", "写入 Token 的 user_id")
	role := flag.String("role", middleware.RoleAdmin, "角色：admin 或 member")
	ttl := flag.Duration("ttl", 0, "有效期，缺省使用 auth.access_token_ttl")
	flag.Parse()

	if *role != middleware.RoleAdmin && *role != middleware.RoleMember {
		fmt.Fprintf(os.Stderr, "未知角色 %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	auth := cfg.Auth
	if *ttl > 0 {
		auth.AccessTokenTTL = *ttl
	}
	if auth.AccessTokenTTL <= 0 {
		auth.AccessTokenTTL = time.Hour
	}

	token, err := jwt.NewManager(&auth).GenerateAccessToken(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
