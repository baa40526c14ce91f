package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/repository"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSession    = pkgerrors.New(pkgerrors.ErrNotFound, "该日期暂无任务分配")
	ErrExportGenerateFail = pkgerrors.New(pkgerrors.ErrStorage, "生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
type ExportService interface {
	// ExportSession 导出某一会话日期的全部任务为 Excel
	ExportSession(ctx context.Context, sessionDate time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSession：导出会话任务为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "任务分配"
//   - 第 1 行标题（合并单元格），第 2 行表头：序号 | 成员 | 任务 | 类型
//   - 普通任务在前，特殊任务在后，各自保持生成顺序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSession(ctx context.Context, sessionDate time.Time) (*bytes.Buffer, string, error) {
	date := model.SessionDate(sessionDate)
	dateText := date.Format(model.DateLayout)

	items, err := s.repo.Assignment.ListBySession(ctx, date, nil)
	if err != nil {
		s.logger.Error("查询会话任务失败", zap.String("session_date", dateText), zap.Error(err))
		return nil, "", pkgerrors.Storage("查询会话任务", err)
	}
	if len(items) == 0 {
		return nil, "", ErrExportNoSession
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "任务分配"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "C", 32)
	f.SetColWidth(sheetName, "D", "D", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 任务分配", dateText))
	f.MergeCell(sheetName, "A1", "D1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"序号", "成员", "任务", "类型"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "D2", headerStyle)

	row := 3
	for i, item := range items {
		name := "-"
		if item.Participant != nil {
			name = item.Participant.Name
		}
		label := ""
		if item.Label != nil {
			label = *item.Label
		}
		kind := "普通"
		if item.IsSpecial {
			kind = "特殊"
		}

		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), name)
		f.SetCellValue(sheetName, cell("C", row), label)
		f.SetCellValue(sheetName, cell("D", row), kind)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("任务分配_%s.xlsx", dateText)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
