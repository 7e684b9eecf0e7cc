package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"smartkids/internal/audio"
	"smartkids/internal/config"
	"smartkids/internal/games"
	"smartkids/internal/models"
	"smartkids/internal/service"
	"smartkids/internal/store"
	"smartkids/internal/utils"
)

type shell struct {
	cfg      *config.Config
	manager  *service.GameManager
	runner   *games.Runner
	narrator *audio.Narrator
	out      io.Writer
}

func (s *shell) choosePlayer(ctx context.Context, name string) error {
	if name == "" {
		names, err := s.manager.ListPlayers(ctx)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			fmt.Fprintf(s.out, "小朋友们: %s\n", strings.Join(names, ", "))
		}
	}
	for utils.ValidatePlayerName(name) != nil {
		line, ok := s.runner.Prompt("你叫什么名字? ")
		if !ok {
			return io.EOF
		}
		name = line
	}

	if err := s.manager.LoadProfile(ctx, name); err == nil {
		s.welcome()
		return nil
	} else if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrCorruptData) {
		return err
	}

	months := 0
	for {
		line, ok := s.runner.Prompt("你几岁了? ")
		if !ok {
			return io.EOF
		}
		years, err := strconv.Atoi(line)
		if err == nil && years >= 0 && years <= 18 {
			months = years * 12
			break
		}
	}

	created, err := s.manager.OpenProfile(ctx, name, months)
	if err != nil {
		return err
	}
	if key := s.manager.QuarantinedKey(); key != "" {
		fmt.Fprintf(s.out, "旧的进度文件损坏，已保存到 %s\n", key)
	}
	if created {
		log.Info().Str("player", name).Msg("New player registered")
	}
	s.welcome()
	return nil
}

func (s *shell) welcome() {
	p, err := s.manager.Profile()
	if err != nil {
		return
	}
	greeting := fmt.Sprintf("你好，%s！", p.Name)
	fmt.Fprintf(s.out, "%s 金币 %d  星星 %d  连续 %d 天\n", greeting, p.Coins, p.Stars, p.DailyStreak)
	s.narrator.Say(greeting)
}

func (s *shell) menu(ctx context.Context) error {
	playable := games.Playable()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(s.out)
		for i, id := range playable {
			level, _ := s.manager.EffectiveDifficulty(id)
			fmt.Fprintf(s.out, "  %d) %s  (level %d)\n", i+1, id.DisplayName(), level)
		}
		fmt.Fprintln(s.out, "  s) 成绩   d <游戏> <1-10|auto> 调难度   q) 退出")

		line, ok := s.runner.Prompt("选一个游戏: ")
		if !ok {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit":
			return nil
		case "s":
			s.printStats()
		case "d":
			s.setDifficulty(ctx, fields[1:])
		default:
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 1 || n > len(playable) {
				fmt.Fprintln(s.out, "没有这个选项")
				continue
			}
			s.play(ctx, playable[n-1])
		}
	}
}

func (s *shell) play(ctx context.Context, id models.GameID) {
	_, err := s.runner.Play(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrPersistence):
		fmt.Fprintln(s.out, "进度暂时没有保存，退出时会再试一次")
	case errors.Is(err, context.Canceled):
	default:
		log.Error().Err(err).Str("game", string(id)).Msg("Session failed")
	}
}

func (s *shell) printStats() {
	for _, id := range models.AllGames {
		stats, err := s.manager.GameStats(id)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read stats")
			return
		}
		setting := "auto"
		if stats.Override.IsSet() {
			setting = stats.Override.String()
		}
		fmt.Fprintf(s.out, "  %-6s 玩了 %d 次, 赢了 %d 次 (%.0f%%), level %d (%s)\n",
			id.DisplayName(), stats.GamesPlayed, stats.GamesWon, stats.WinRate*100, stats.CurrentDifficulty, setting)
	}
}

func (s *shell) setDifficulty(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "用法: d 数一数 3  或  d counting auto")
		return
	}
	id, err := models.ParseGameID(args[0])
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	override := models.NoOverride
	if args[1] != "auto" {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(s.out, "难度必须是 1-10 或 auto")
			return
		}
		override = models.OverrideLevel(level)
	}
	if err := s.manager.SetManualOverride(ctx, id, override); err != nil {
		fmt.Fprintln(s.out, err)
	}
}

// close retries a failed save and remembers the player for next time
func (s *shell) close(ctx context.Context) {
	if s.manager.Unsaved() {
		if err := s.manager.RetrySave(ctx); err != nil {
			log.Error().Err(err).Msg("Progress could not be saved")
		}
	}
	p, err := s.manager.Profile()
	if err != nil {
		return
	}
	s.cfg.Settings.LastPlayer = p.Name
	if err := s.cfg.Settings.Save(s.cfg.SettingsFile); err != nil {
		log.Warn().Err(err).Msg("Failed to save settings")
	}
}
