// Command mint-token issues a session token for local testing of an area server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/splax/arena/pkg/config"
	jwtpkg "github.com/splax/arena/pkg/jwt"
	"github.com/splax/arena/pkg/logger"
)

func main() {
	playerID := flag.Int64("player", 0, "player id (required)")
	userID := flag.String("user", "", "user id used for push routing (defaults to the player id)")
	name := flag.String("name", "", "display name")
	level := flag.Int("level", 1, "player level")
	area := flag.String("area", "", "area id (defaults to ARENA_AREA_ID)")
	flag.Parse()

	log := logger.New("arena-mint-token", slog.LevelInfo)
	cfg, err := config.LoadAreaConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *playerID <= 0 {
		log.Error("-player must be positive")
		os.Exit(2)
	}
	claims := jwtpkg.Claims{
		PlayerID: *playerID,
		UserID:   *userID,
		AreaID:   *area,
		Name:     *name,
		Level:    *level,
	}
	if claims.UserID == "" {
		claims.UserID = strconv.FormatInt(*playerID, 10)
	}
	if claims.AreaID == "" {
		claims.AreaID = cfg.AreaID
	}
	token, err := jwtpkg.GenerateToken(claims, cfg.JWTSecret, cfg.SessionTokenTTL)
	if err != nil {
		log.Error("failed to sign token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
