package notify

import (
	"encoding/json"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"promohub/internal/service/promotion/port"
)

// Filter 是订阅者提供的 CEL 表达式，例如
//
//	event == "promotion_created" && promotion.type == "sale"
//
// 可用变量：event、promotion（删除事件为空 map）、promotionId。
type Filter struct {
	expr string
	prg  cel.Program
}

var filterEnv, filterEnvErr = cel.NewEnv(
	cel.Variable("event", cel.StringType),
	cel.Variable("promotion", cel.MapType(cel.StringType, cel.DynType)),
	cel.Variable("promotionId", cel.StringType),
)

// CompileFilter 编译表达式，空表达式返回 nil，表示接收全部事件。
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	if filterEnvErr != nil {
		return nil, errors.Wrap(filterEnvErr, "cel env")
	}
	ast, iss := filterEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "compile filter")
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, errors.Errorf("filter must evaluate to bool, got %s", out)
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build filter program")
	}
	return &Filter{expr: expr, prg: prg}, nil
}

func (f *Filter) String() string { return f.expr }

// Match 求值失败（例如访问不存在的字段）按不匹配处理。
func (f *Filter) Match(vars map[string]any) bool {
	if f == nil {
		return true
	}
	out, _, err := f.prg.Eval(vars)
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Activation 把通知转换为 CEL 变量。
// 先序列化为 JSON 再反序列化为 map，保证字段名与订阅者收到的消息一致。
func Activation(n port.Notification) (map[string]any, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	promotion, _ := m["promotion"].(map[string]any)
	if promotion == nil {
		promotion = map[string]any{}
	}
	id, _ := m["promotionId"].(string)
	return map[string]any{
		"event":       string(n.Event),
		"promotion":   promotion,
		"promotionId": id,
	}, nil
}
