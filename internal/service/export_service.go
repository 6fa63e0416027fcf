package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"resv-system/backend/internal/model"
	"resv-system/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportRange        = errors.New("导出范围无效：结束日期不能早于开始日期，且跨度不超过 366 天")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const maxExportDays = 366

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportReservations 导出日期范围内（按时段开始日期）的预约为 Excel
	ExportReservations(ctx context.Context, startDate, endDate string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出本人有效预约为 iCalendar
	ExportCalendar(ctx context.Context, caller Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportReservations 导出预约为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "预约明细"：每个时段一行
//   - Sheet "房间汇总"：每个房间的有效时段数与总时长

func (s *exportService) ExportReservations(ctx context.Context, startDate, endDate string) (*bytes.Buffer, string, error) {
	from, err := time.ParseInLocation(dateLayout, startDate, s.loc)
	if err != nil {
		return nil, "", ErrInvalidDate
	}
	to, err := time.ParseInLocation(dateLayout, endDate, s.loc)
	if err != nil {
		return nil, "", ErrInvalidDate
	}
	to = to.AddDate(0, 0, 1)
	if !from.Before(to) || to.Sub(from) > maxExportDays*24*time.Hour {
		return nil, "", ErrExportRange
	}

	// 1. 查询预约（含时段）
	list, err := s.repo.Reservation.List(ctx, repository.ReservationFilter{
		SlotStart: repository.TimeRange{From: from, To: to},
	})
	if err != nil {
		s.logger.Error("查询导出预约失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 展开为时段行，并按房间汇总有效时段
	type rowDef struct {
		resv *model.Reservation
		slot model.TimeSlot
	}
	type roomSum struct {
		slots int
		hours float64
	}
	var rows []rowDef
	sums := make(map[string]*roomSum)
	for i := range list {
		resv := &list[i]
		for _, ts := range resv.TimeSlots {
			if ts.StartTime.Before(from) || !ts.StartTime.Before(to) {
				continue
			}
			rows = append(rows, rowDef{resv: resv, slot: ts})
			if !ts.IsActive {
				continue
			}
			sum, ok := sums[resv.RoomID]
			if !ok {
				sum = &roomSum{}
				sums[resv.RoomID] = sum
			}
			sum.slots++
			sum.hours += ts.EndTime.Sub(ts.StartTime).Hours()
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].resv.RoomID != rows[j].resv.RoomID {
			return rows[i].resv.RoomID < rows[j].resv.RoomID
		}
		return rows[i].slot.StartTime.Before(rows[j].slot.StartTime)
	})

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	detail := "预约明细"
	idx, _ := f.NewSheet(detail)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"预约ID", "房间", "用户", "标题", "类型", "状态", "隐私", "开始时间", "结束时间", "创建时间"}
	widths := []float64{38, 12, 14, 24, 10, 12, 10, 18, 18, 18}
	for i, h := range headers {
		f.SetCellValue(detail, cell(colName(i), 1), h)
		f.SetColWidth(detail, colName(i), colName(i), widths[i])
	}
	f.SetCellStyle(detail, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	const tsLayout = "2006-01-02 15:04"
	row := 2
	for _, rd := range rows {
		values := []interface{}{
			rd.resv.ResvID,
			rd.resv.RoomID,
			rd.resv.Username,
			rd.resv.Title,
			rd.resv.Type.String(),
			rd.resv.Status.String(),
			rd.resv.SecuLevel.String(),
			rd.slot.StartTime.In(s.loc).Format(tsLayout),
			rd.slot.EndTime.In(s.loc).Format(tsLayout),
			rd.resv.CreatedAt.In(s.loc).Format(tsLayout),
		}
		for i, v := range values {
			f.SetCellValue(detail, cell(colName(i), row), v)
		}
		row++
	}

	summary := "房间汇总"
	f.NewSheet(summary)
	f.SetColWidth(summary, "A", "A", 12)
	f.SetColWidth(summary, "B", "C", 14)
	f.SetCellValue(summary, "A1", "房间")
	f.SetCellValue(summary, "B1", "有效时段数")
	f.SetCellValue(summary, "C1", "总时长(小时)")
	f.SetCellStyle(summary, "A1", "C1", headerStyle)

	roomIDs := make([]string, 0, len(sums))
	for id := range sums {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)
	for i, id := range roomIDs {
		f.SetCellValue(summary, cell("A", i+2), id)
		f.SetCellValue(summary, cell("B", i+2), sums[id].slots)
		f.SetCellValue(summary, cell("C", i+2), sums[id].hours)
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("预约记录_%s_%s.xlsx", startDate, endDate)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 本人有效预约导出为 .ics
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, caller Caller) (*bytes.Buffer, string, error) {
	list, err := s.repo.Reservation.List(ctx, repository.ReservationFilter{Username: caller.Username})
	if err != nil {
		s.logger.Error("查询日历预约失败", zap.String("username", caller.Username), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//resv-system//reservation calendar//CN")
	cal.SetXWRCalName(fmt.Sprintf("%s 的预约", caller.Username))

	stamp := time.Now()
	for i := range list {
		resv := &list[i]
		if !resv.Status.Active() {
			continue
		}
		for _, ts := range resv.TimeSlots {
			if !ts.IsActive {
				continue
			}
			evt := cal.AddEvent(ts.SlotID + "@resv-system")
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(ts.StartTime)
			evt.SetEndAt(ts.EndTime)
			evt.SetSummary(resv.Title)
			evt.SetLocation(resv.RoomID)
			if resv.Note != "" {
				evt.SetDescription(resv.Note)
			}
			if resv.Status == model.StatusPending {
				evt.SetStatus(ics.ObjectStatusTentative)
			} else {
				evt.SetStatus(ics.ObjectStatusConfirmed)
			}
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s.ics", caller.Username), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
