package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/storage"
	"github.com/xaenox/diary-bot/internal/topic"
	"go.uber.org/zap"
)

// sender is the part of tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot presents.
type Deps struct {
	Users   storage.UserStorage
	Diaries *diary.Service
	Topics  *topic.Service
	// IsAdmin gates /settopic. Nil means nobody is an admin.
	IsAdmin       func(telegramID int64) bool
	DefaultAdvice bool
}

type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	deps   Deps
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(token string, deps Deps, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, deps, logger)
	b.api = api
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(s sender, deps Deps, logger *zap.Logger) *Bot {
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(int64) bool { return false }
	}
	return &Bot{sender: s, deps: deps, logger: logger}
}

// Start receives updates until ctx is cancelled, then waits for in-flight
// messages to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.wg.Add(1)
		go func(message *tgbotapi.Message) {
			defer b.wg.Done()
			// Saves finish even when shutdown starts mid-call.
			b.handleMessage(context.WithoutCancel(ctx), message)
		}(update.Message)
	}

	b.wg.Wait()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}

	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		b.logger.Error("Failed to load user",
			zap.Error(err),
			zap.Int64("telegram_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "ユーザー情報を読み込めませんでした。時間をおいて再度お試しください。")
		return
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, user, message)
		return
	}

	// Get content from message
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	b.handleWrite(ctx, user, message, content)
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	name := from.UserName
	if name == "" {
		name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	user, _, err := b.deps.Users.EnsureUser(ctx, from.ID, name, b.deps.DefaultAdvice)
	return user, err
}

func (b *Bot) handleCommand(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "today":
		b.handleToday(ctx, user, message)
	case "history":
		b.handleHistory(ctx, user, message)
	case "search":
		b.handleSearch(ctx, user, message, args)
	case "diary":
		b.handleDetail(ctx, user, message, args)
	case "advice":
		b.handleAdvice(ctx, user, message, args)
	case "topic":
		b.handleTopic(ctx, message)
	case "comment":
		b.handleComment(ctx, user, message, args)
	case "settopic":
		b.handleSetTopic(ctx, message, args)
	default:
		b.sendMessage(message.Chat.ID, "不明なコマンドです。/help で使い方を確認できます。")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `ようこそ、こころ日記へ 📔
今日の出来事や気持ちをそのまま送ってください。1日1通の日記として保存し、AIカウンセラーが返信します。
同じ日にもう一度送ると、その日の日記が書き直されます。

使い方は /help で確認できます。`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `使えるコマンド:
/today - 今日の日記と返信を表示
/history - 昨日までの日記一覧
/search キーワード [開始日] [終了日] - 日記を検索（日付は YYYY-MM-DD）
/diary ID - 日記の詳細を表示
/advice on|off - 健康アドバイス付きの返信を切り替え
/topic - 今日の話題とみんなのコメント
/comment 内容 - 今日の話題にコメント

コマンド以外のメッセージは今日の日記として保存されます。`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleWrite(ctx context.Context, user *models.User, message *tgbotapi.Message, content string) {
	b.sendChatAction(message.Chat.ID, tgbotapi.ChatTyping)

	result, err := b.deps.Diaries.Write(ctx, user.ID, diary.WriteRequest{Content: content})
	switch {
	case errors.Is(err, diary.ErrEmptyContent):
		b.sendMessage(message.Chat.ID, "日記の内容が空のようです。テキストで送ってください。")
		return
	case errors.Is(err, diary.ErrContentTooLong):
		b.sendMessage(message.Chat.ID, fmt.Sprintf("日記が長すぎます。%d文字以内でお願いします。", diary.MaxContentLength))
		return
	case err != nil:
		b.logger.Error("Failed to save diary",
			zap.Error(err),
			zap.String("user_id", user.ID),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "日記を保存できませんでした。もう一度お試しください。")
		return
	}

	b.sendReply(message.Chat.ID, message.MessageID, formatSaved(result))
}

func (b *Bot) handleToday(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	entry, err := b.deps.Diaries.Current(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to load today's diary", zap.Error(err), zap.String("user_id", user.ID))
		b.sendErrorMessage(message.Chat.ID, "今日の日記を読み込めませんでした。")
		return
	}
	if entry == nil {
		b.sendMessage(message.Chat.ID, "今日の日記はまだありません。メッセージを送ると保存されます。")
		return
	}
	b.sendMessage(message.Chat.ID, formatEntry(entry, b.deps.Diaries.ReplyState(entry)))
}

func (b *Bot) handleHistory(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	entries, err := b.deps.Diaries.History(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to get diary history", zap.Error(err), zap.String("user_id", user.ID))
		b.sendErrorMessage(message.Chat.ID, "日記の一覧を取得できませんでした。")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(message.Chat.ID, "昨日までの日記はまだありません。")
		return
	}
	b.sendMessage(message.Chat.ID, formatList("日記の一覧", entries))
}

func (b *Bot) handleSearch(ctx context.Context, user *models.User, message *tgbotapi.Message, args string) {
	req := parseSearch(args)
	entries, err := b.deps.Diaries.Search(ctx, user.ID, req)
	if errors.Is(err, diary.ErrInvalidPeriod) {
		b.sendMessage(message.Chat.ID, "期間の指定が正しくありません。開始日は終了日より前にしてください。")
		return
	}
	if err != nil {
		b.logger.Error("Failed to search diaries", zap.Error(err), zap.String("user_id", user.ID))
		b.sendErrorMessage(message.Chat.ID, "日記を検索できませんでした。")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(message.Chat.ID, "条件に合う日記は見つかりませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, formatList("検索結果", entries))
}

func (b *Bot) handleDetail(ctx context.Context, user *models.User, message *tgbotapi.Message, entryID string) {
	if entryID == "" {
		b.sendMessage(message.Chat.ID, "使い方: /diary ID")
		return
	}
	entry, err := b.deps.Diaries.Detail(ctx, user.ID, entryID)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(message.Chat.ID, "その日記は見つかりませんでした。")
		return
	}
	if err != nil {
		b.logger.Error("Failed to load diary", zap.Error(err), zap.String("entry_id", entryID))
		b.sendErrorMessage(message.Chat.ID, "日記を読み込めませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, formatEntry(entry, b.deps.Diaries.ReplyState(entry)))
}

func (b *Bot) handleAdvice(ctx context.Context, user *models.User, message *tgbotapi.Message, arg string) {
	var enabled bool
	switch strings.ToLower(arg) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		b.sendMessage(message.Chat.ID, "使い方: /advice on または /advice off")
		return
	}

	if err := b.deps.Diaries.SetAdvice(ctx, user.ID, enabled); err != nil {
		b.logger.Error("Failed to update profile", zap.Error(err), zap.String("user_id", user.ID))
		b.sendErrorMessage(message.Chat.ID, "設定を保存できませんでした。")
		return
	}
	if enabled {
		b.sendMessage(message.Chat.ID, "設定を更新しました。返信に健康維持のアドバイスを添えます。")
	} else {
		b.sendMessage(message.Chat.ID, "設定を更新しました。返信は共感のみになります。")
	}
}

func (b *Bot) handleTopic(ctx context.Context, message *tgbotapi.Message) {
	view, err := b.deps.Topics.Today(ctx)
	if errors.Is(err, topic.ErrNoTopic) {
		b.sendMessage(message.Chat.ID, "今日の話題はまだ登録されていません。")
		return
	}
	if err != nil {
		b.logger.Error("Failed to load topic", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "今日の話題を読み込めませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, formatTopic(view))
}

func (b *Bot) handleComment(ctx context.Context, user *models.User, message *tgbotapi.Message, content string) {
	_, err := b.deps.Topics.Post(ctx, user.ID, content)
	switch {
	case errors.Is(err, topic.ErrEmptyComment):
		b.sendMessage(message.Chat.ID, "使い方: /comment 内容")
		return
	case errors.Is(err, topic.ErrNoTopic):
		b.sendMessage(message.Chat.ID, "今日の話題はまだ登録されていません。")
		return
	case err != nil:
		b.logger.Error("Failed to post comment", zap.Error(err), zap.String("user_id", user.ID))
		b.sendErrorMessage(message.Chat.ID, "コメントを投稿できませんでした。")
		return
	}

	// Show the whole thread so the new comment appears at the bottom.
	b.handleTopic(ctx, message)
}

func (b *Bot) handleSetTopic(ctx context.Context, message *tgbotapi.Message, args string) {
	if !b.deps.IsAdmin(message.From.ID) {
		b.sendMessage(message.Chat.ID, "このコマンドは管理者のみ使えます。")
		return
	}

	dateArg, title, _ := strings.Cut(args, " ")
	date, err := models.ParseDate(dateArg)
	if err != nil || strings.TrimSpace(title) == "" {
		b.sendMessage(message.Chat.ID, "使い方: /settopic YYYY-MM-DD タイトル")
		return
	}

	t, err := b.deps.Topics.Set(ctx, date, title)
	switch {
	case errors.Is(err, storage.ErrConflict):
		b.sendMessage(message.Chat.ID, fmt.Sprintf("%s の話題はすでに登録されています。", date))
		return
	case errors.Is(err, storage.ErrInvalid):
		b.sendMessage(message.Chat.ID, fmt.Sprintf("タイトルは%d文字以内で入力してください。", models.MaxTopicTitleLength))
		return
	case err != nil:
		b.logger.Error("Failed to set topic", zap.Error(err), zap.Stringer("date", date))
		b.sendErrorMessage(message.Chat.ID, "話題を登録できませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("%s の話題を登録しました: %s", t.Date, t.Title))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.sendReply(chatID, 0, text)
}

// sendReply sends text in as many messages as Telegram's length limit
// requires. Only the first one quotes replyTo.
func (b *Bot) sendReply(chatID int64, replyTo int, text string) {
	for i, chunk := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.Int("part", i+1))
			return
		}
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendChatAction(chatID int64, action string) {
	// Chat actions answer with a bool, not a Message, so they go through Request.
	if _, err := b.sender.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.logger.Debug("Failed to send chat action", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}
