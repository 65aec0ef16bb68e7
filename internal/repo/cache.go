package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
)

const balanceTTL = 5 * time.Minute

// Cached balances are stored as "<wallet version>:<balance>". A write only
// replaces a key holding an older version, so a reader that loaded the row
// before a concurrent commit cannot put the old balance back.
const cacheWalletScript = `
local n = 0
for i, key in ipairs(KEYS) do
	local cur = redis.call('GET', key)
	local v = cur and tonumber(string.match(cur, '^(%d+):'))
	if not v or v < tonumber(ARGV[1]) then
		redis.call('SET', key, ARGV[1] .. ':' .. ARGV[i + 1], 'PX', ARGV[#ARGV])
		n = n + 1
	end
end
return n
`

func balanceKey(studentID uint64, currency model.Currency) string {
	return fmt.Sprintf("balance:%d:%s", studentID, currency)
}

// CacheWallet writes both balances of w unless Redis already holds a newer version.
func (r *Repository) CacheWallet(ctx context.Context, w *model.Wallet) error {
	if r.rdb == nil {
		return nil
	}
	keys := []string{
		balanceKey(w.StudentID, model.CurrencyPoints),
		balanceKey(w.StudentID, model.CurrencyCash),
	}
	return r.rdb.Eval(ctx, cacheWalletScript, keys,
		w.Version,
		w.Balance(model.CurrencyPoints).String(),
		w.Balance(model.CurrencyCash).String(),
		balanceTTL.Milliseconds(),
	).Err()
}

// GetCachedBalance reads Redis. A miss (or no cache) returns redis.Nil.
func (r *Repository) GetCachedBalance(ctx context.Context, studentID uint64, currency model.Currency) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, redis.Nil
	}
	str, err := r.rdb.Get(ctx, balanceKey(studentID, currency)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	_, bal, ok := strings.Cut(str, ":")
	if !ok {
		return decimal.Zero, fmt.Errorf("malformed cached balance %q", str)
	}
	return decimal.NewFromString(bal)
}

// InvalidateBalance drops both cached balances.
func (r *Repository) InvalidateBalance(ctx context.Context, studentID uint64) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx,
		balanceKey(studentID, model.CurrencyPoints),
		balanceKey(studentID, model.CurrencyCash),
	).Err()
}
