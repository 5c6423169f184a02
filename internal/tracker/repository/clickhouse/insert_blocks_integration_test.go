package clickhouse

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

func (s *RepositorySuite) TestInsertBlocks() {
	now := time.Now().UTC().Truncate(time.Second)
	blocks := []model.Block{
		newArchivedBlock(0, "a", now),
		newArchivedBlock(1, "b", now.Add(time.Second)),
	}

	s.metrics.EXPECT().Observe("insert_blocks", model.BTC, model.Mainnet, gomock.Nil(), gomock.Any()).Times(1)

	s.Require().NoError(s.repo.InsertBlocks(s.testCtx, model.BTC, model.Mainnet, blocks))
	s.Equal(uint64(len(blocks)), s.countRows("tracker_blocks"))
}

func (s *RepositorySuite) TestMaxBlockHeight() {
	now := time.Now().UTC().Truncate(time.Second)

	s.metrics.EXPECT().Observe("max_block_height", model.BTC, model.Mainnet, gomock.Nil(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("insert_blocks", model.BTC, model.Mainnet, gomock.Nil(), gomock.Any()).Times(1)

	_, found, err := s.repo.MaxBlockHeight(s.testCtx, model.BTC, model.Mainnet)
	s.Require().NoError(err)
	s.False(found)

	blocks := []model.Block{
		newArchivedBlock(10, "a", now),
		newArchivedBlock(11, "b", now.Add(time.Second)),
	}
	s.Require().NoError(s.repo.InsertBlocks(s.testCtx, model.BTC, model.Mainnet, blocks))

	height, found, err := s.repo.MaxBlockHeight(s.testCtx, model.BTC, model.Mainnet)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(uint64(11), height)
}
