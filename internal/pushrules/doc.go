// Package pushrules はユーザーごとのプッシュルールセットのインメモリモデルを提供する。
//
// ルールセットは override → content → room → sender → underride の5種類の
// ルール種別に分かれており、この順序がそのまま通知判定時の優先順位になる。
// 各種別の中でもルールの並び順は優先順位を表すため、すべての操作で保持される。
//
// 永続化上はアカウントデータの1ドキュメント（JSON）として保存されるため、
// Decode / Encode はそのドキュメントとの境界としてのみ機能し、
// ルールセット以外のフィールドは手を付けずに往復させる。
package pushrules
