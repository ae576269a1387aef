// 手动导入开发环境用户并签发测试 token
//
// 认证由外部系统负责，本地联调时用这个脚本准备带部门和角色的用户。
// 已存在的邮箱会跳过，只重新签发 token。
//
// 用法: go run scripts/seed_users.go -config configs -file configs/seed.yaml

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	TokenHours int        `yaml:"token_hours"`
	Users      []seedUser `yaml:"users"`
}

type seedUser struct {
	Nome  string `yaml:"nome"`
	Email string `yaml:"email"`
	Setor string `yaml:"setor"`
	Cargo string `yaml:"cargo"`
	Role  string `yaml:"role"`
}

func main() {
	configDir := flag.String("config", "configs", "配置目录")
	seedPath := flag.String("file", "configs/seed.yaml", "用户清单")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatalf("无法读取用户清单: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("解析用户清单失败: %v", err)
	}
	if seed.TokenHours <= 0 {
		seed.TokenHours = 24
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()
	for _, su := range seed.Users {
		user, err := users.FindByEmail(ctx, su.Email)
		if errors.Is(err, util.ErrUserNotFound) {
			user = &model.User{
				Nome:  su.Nome,
				Email: su.Email,
				Setor: su.Setor,
				Cargo: su.Cargo,
				Role:  model.UserRole(su.Role),
			}
			if err := users.Create(ctx, user); err != nil {
				log.Fatalf("创建用户 %s 失败: %v", su.Email, err)
			}
		} else if err != nil {
			log.Fatalf("查询用户 %s 失败: %v", su.Email, err)
		}

		token, err := util.GenerateJWT(user, cfg.JWT.Secret, time.Duration(seed.TokenHours)*time.Hour)
		if err != nil {
			log.Fatalf("签发 token 失败: %v", err)
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", user.Email, user.Role, user.Setor, token)
	}
	log.Println("完成！")
}
